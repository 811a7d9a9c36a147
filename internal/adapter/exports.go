package adapter

import (
	"debug/elf"
	"sort"

	m "github.com/toabey/gnat-llvm/internal/model"
)

// ReadExports lists the defined function symbols in an ELF module's dynamic
// symbol table, sorted. It exists purely to make SymbolError diagnosable:
// when a declared symbol is missing, the author sees what the compiler
// actually exported (mangled Ada names included).
func ReadExports(path m.Path) ([]string, error) {
	f, err := elf.Open(string(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	syms, err := f.DynamicSymbols()
	if err != nil {
		return nil, err
	}

	var names []string

	for _, s := range syms {
		if s.Section == elf.SHN_UNDEF || s.Name == "" {
			continue
		}

		if elf.ST_TYPE(s.Info) != elf.STT_FUNC {
			continue
		}

		names = append(names, s.Name)
	}

	sort.Strings(names)

	return names, nil
}
