package main

import (
	"debug/elf"
	"fmt"
	"io/ioutil"
	"os"
	"sort"
)

type progSlice []*elf.Prog

func (s progSlice) Len() int           { return len(s) }
func (s progSlice) Less(i, j int) bool { return s[i].Paddr < s[j].Paddr }
func (s progSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// extractELF extracts a firmware image from the given ELF file, emulating
// objcopy's raw binary dump: start at the lowest loaded section address,
// concatenate contiguous PT_LOAD segments.
func extractELF(fp *os.File) ([]byte, error) {
	f, err := elf.NewFile(fp)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file to extract image: %w", err)
	}
	defer f.Close()

	startAddr := ^uint64(0)
	for _, section := range f.Sections {
		if section.Type != elf.SHT_PROGBITS || section.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		if section.Addr < startAddr {
			startAddr = section.Addr
		}
	}

	progs := make(progSlice, 0, 2)
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		progs = append(progs, prog)
	}
	if len(progs) == 0 {
		return nil, fmt.Errorf("file does not contain ROM segments")
	}
	sort.Sort(progs)

	var rom []byte
	for _, prog := range progs {
		if prog.Paddr != progs[0].Paddr+uint64(len(rom)) {
			return nil, fmt.Errorf("ROM segments are non-contiguous")
		}
		data, err := ioutil.ReadAll(prog.Open())
		if err != nil {
			return nil, fmt.Errorf("failed to extract segment from ELF file")
		}
		rom = append(rom, data...)
	}
	if progs[0].Paddr < startAddr {
		return rom[startAddr-progs[0].Paddr:], nil
	}
	return rom, nil
}

// readImage loads a firmware image to stream over OTA. It accepts a raw
// binary file as-is, or extracts the load image from an ELF file — the
// image is an opaque byte sequence either way (spec §3 imposes no header).
func readImage(filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := f.ReadAt(magic, 0); err != nil {
		return nil, err
	}

	if string(magic) == "\x7fELF" {
		return extractELF(f)
	}
	return ioutil.ReadFile(filename)
}
