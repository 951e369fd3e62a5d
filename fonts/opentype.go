package fonts

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// OpenTypeTable represents an entry in the OpenType table directory.
type OpenTypeTable struct {
	Tag      string
	CheckSum uint32
	Offset   uint32
	Length   uint32
}

var errShortDirectory = errors.New("table directory truncated")

// ParseOpenTypeTableDirectory reads the table directory of a TrueType or
// OpenType program. Only the directory is read; table contents are not
// validated.
func ParseOpenTypeTableDirectory(data []byte) (map[string]OpenTypeTable, error) {
	if len(data) < 12 {
		return nil, errShortDirectory
	}
	numTables := int(binary.BigEndian.Uint16(data[4:6]))
	if len(data) < 12+16*numTables {
		return nil, errShortDirectory
	}
	tables := make(map[string]OpenTypeTable, numTables)
	for i := 0; i < numTables; i++ {
		rec := data[12+16*i : 28+16*i]
		t := OpenTypeTable{
			Tag:      string(rec[0:4]),
			CheckSum: binary.BigEndian.Uint32(rec[4:8]),
			Offset:   binary.BigEndian.Uint32(rec[8:12]),
			Length:   binary.BigEndian.Uint32(rec[12:16]),
		}
		tables[t.Tag] = t
	}
	return tables, nil
}

// ExtractTable returns the raw data of a specific table.
func ExtractTable(data []byte, table OpenTypeTable) ([]byte, error) {
	end := uint64(table.Offset) + uint64(table.Length)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("table %s out of bounds", table.Tag)
	}
	return data[table.Offset:end], nil
}
