// Package versioninfotest builds VS_VERSIONINFO resources and PE images
// carrying them, for tests.
package versioninfotest

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"unicode/utf16"
)

const (
	// TextValueType marks a block whose value is UTF-16 text
	TextValueType = 1
	// FixedFileInfoSize is the size of VS_FIXEDFILEINFO
	FixedFileInfoSize = 52

	fixedFileInfoSignature = 0xFEEF04BD
	blockHeaderSize        = 6
)

// UTF16Z encodes s as NUL-terminated little-endian UTF-16
func UTF16Z(s string) []byte {
	u := append(utf16.Encode([]rune(s)), 0)
	b := make([]byte, len(u)*2)
	for i, c := range u {
		binary.LittleEndian.PutUint16(b[i*2:], c)
	}
	return b
}

func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

// Block encodes one VS_VERSIONINFO node the way resource compilers do
func Block(key string, valueType uint16, value []byte, valueLength uint16, children ...[]byte) []byte {
	b := make([]byte, blockHeaderSize)
	b = append(b, UTF16Z(key)...)
	if len(value) > 0 || len(children) > 0 {
		b = pad4(b)
	}
	b = append(b, value...)
	for _, c := range children {
		b = pad4(b)
		b = append(b, c...)
	}
	binary.LittleEndian.PutUint16(b[0:], uint16(len(b)))
	binary.LittleEndian.PutUint16(b[2:], valueLength)
	binary.LittleEndian.PutUint16(b[4:], valueType)
	return b
}

// String encodes one StringTable entry
func String(key, value string) []byte {
	v := UTF16Z(value)
	return Block(key, TextValueType, v, uint16(len(v)/2))
}

// FixedInfo encodes a VS_FIXEDFILEINFO for an application
func FixedInfo(file, product [4]uint16) []byte {
	b := make([]byte, FixedFileInfoSize)
	le := binary.LittleEndian
	le.PutUint32(b[0:], fixedFileInfoSignature)
	le.PutUint32(b[4:], 0x00010000)
	le.PutUint32(b[8:], uint32(file[0])<<16|uint32(file[1]))
	le.PutUint32(b[12:], uint32(file[2])<<16|uint32(file[3]))
	le.PutUint32(b[16:], uint32(product[0])<<16|uint32(product[1]))
	le.PutUint32(b[20:], uint32(product[2])<<16|uint32(product[3]))
	le.PutUint32(b[24:], 0x3f)
	le.PutUint32(b[32:], 0x40004) // VOS_NT_WINDOWS32
	le.PutUint32(b[36:], 1)       // VFT_APP
	return b
}

// Resource assembles a complete VS_VERSIONINFO tree. A nil fixed omits the
// fixed file info; tables are StringTable blocks in order.
func Resource(fixed []byte, tables ...[]byte) []byte {
	sfi := Block("StringFileInfo", TextValueType, nil, 0, tables...)
	vfi := Block("VarFileInfo", TextValueType, nil, 0,
		Block("Translation", 0, []byte{0x09, 0x04, 0xb0, 0x04}, 4),
	)
	valueLength := uint16(0)
	if fixed != nil {
		valueLength = FixedFileInfoSize
	}
	return Block("VS_VERSION_INFO", 0, fixed, valueLength, vfi, sfi)
}

const (
	rtVersion = 16

	imageBase        = 0x400000
	sectionAlignment = 0x1000
	fileAlignment    = 0x200
	headersSize      = 0x200
	rsrcRVA          = 0x1000

	// offsets inside .rsrc
	nameDirOffset   = 24
	langDirOffset   = 48
	dataEntryOffset = 72
	dataOffset      = 96
)

// Image returns a PE32 image with a single .rsrc section whose only
// resource is res, stored as RT_VERSION #1 in language 0x409
func Image(res []byte) []byte {
	rsrc := resourceSection(res)
	rawSize := align(len(rsrc), fileAlignment)

	var buf bytes.Buffer
	dos := make([]byte, 64)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[0x3c:], uint32(len(dos)))
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")

	optional := pe.OptionalHeader32{
		Magic:                       0x10b,
		MajorLinkerVersion:          14,
		SizeOfInitializedData:       uint32(rawSize),
		ImageBase:                   imageBase,
		SectionAlignment:            sectionAlignment,
		FileAlignment:               fileAlignment,
		MajorOperatingSystemVersion: 6,
		MajorSubsystemVersion:       6,
		SizeOfImage:                 uint32(rsrcRVA + align(len(rsrc), sectionAlignment)),
		SizeOfHeaders:               headersSize,
		Subsystem:                   pe.IMAGE_SUBSYSTEM_WINDOWS_GUI,
		SizeOfStackReserve:          0x100000,
		SizeOfStackCommit:           0x1000,
		SizeOfHeapReserve:           0x100000,
		SizeOfHeapCommit:            0x1000,
		NumberOfRvaAndSizes:         16,
	}
	optional.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_RESOURCE] = pe.DataDirectory{
		VirtualAddress: rsrcRVA,
		Size:           uint32(len(rsrc)),
	}

	headers := []interface{}{
		pe.FileHeader{
			Machine:              pe.IMAGE_FILE_MACHINE_I386,
			NumberOfSections:     1,
			SizeOfOptionalHeader: uint16(binary.Size(optional)),
			Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_32BIT_MACHINE,
		},
		optional,
		pe.SectionHeader32{
			Name:             [8]uint8{'.', 'r', 's', 'r', 'c'},
			VirtualSize:      uint32(len(rsrc)),
			VirtualAddress:   rsrcRVA,
			SizeOfRawData:    uint32(rawSize),
			PointerToRawData: headersSize,
			Characteristics:  pe.IMAGE_SCN_CNT_INITIALIZED_DATA | pe.IMAGE_SCN_MEM_READ,
		},
	}
	for _, h := range headers {
		// writes to a bytes.Buffer do not fail
		_ = binary.Write(&buf, binary.LittleEndian, h)
	}

	image := make([]byte, headersSize+rawSize)
	copy(image, buf.Bytes())
	copy(image[headersSize:], rsrc)
	return image
}

// resourceSection lays out the type, name and language directories, one
// data entry and the resource bytes
func resourceSection(res []byte) []byte {
	le := binary.LittleEndian
	b := make([]byte, dataOffset, dataOffset+len(res))

	dir := func(off int, id, target uint32) {
		le.PutUint16(b[off+14:], 1) // NumberOfIdEntries
		le.PutUint32(b[off+16:], id)
		le.PutUint32(b[off+20:], target)
	}
	const subdirectory = 0x80000000
	dir(0, rtVersion, subdirectory|nameDirOffset)
	dir(nameDirOffset, 1, subdirectory|langDirOffset)
	dir(langDirOffset, 0x409, dataEntryOffset)

	le.PutUint32(b[dataEntryOffset:], rsrcRVA+dataOffset)
	le.PutUint32(b[dataEntryOffset+4:], uint32(len(res)))

	return append(b, res...)
}

func align(n, to int) int {
	return (n + to - 1) / to * to
}
