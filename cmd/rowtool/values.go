package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/squareup/rowstore/errors"
	"github.com/squareup/rowstore/rowdef"
)

// parseRowDefFlag parses "<id>:<descriptor>".
func parseRowDefFlag(def string) (*rowdef.RowDef, error) {
	parts := strings.SplitN(def, ":", 2)
	if len(parts) != 2 {
		return nil, errors.NewInvalidDescriptorError(fmt.Sprintf("expected <id>:<descriptor>, got %q", def))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil || id <= 0 {
		return nil, errors.NewInvalidDescriptorError(fmt.Sprintf("invalid row def id %q", parts[0]))
	}
	return rowdef.ParseRowDef(int32(id), parts[1])
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// parseValues converts a JSON array into values for rd. JSON null is a null field; numbers are converted
// according to the column's encoding and strings are used for VARCHAR, VARBINARY and BLOB columns.
func parseValues(rd *rowdef.RowDef, jsonRow string) ([]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(jsonRow))
	dec.UseNumber()
	var raw []interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.NewValueOutOfRangeError(fmt.Sprintf("row is not a JSON array: %v", err))
	}
	var extra interface{}
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, errors.NewValueOutOfRangeError(fmt.Sprintf("unexpected data after JSON array in %q", jsonRow))
	}
	if len(raw) != rd.FieldCount() {
		return nil, errors.NewWrongNumberOfValuesError(rd.FieldCount(), len(raw))
	}
	values := make([]interface{}, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		fd := rd.FieldDef(i)
		value, err := convertValue(fd, v)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

func convertValue(fd *rowdef.FieldDef, v interface{}) (interface{}, error) {
	switch fd.Type().Encoding {
	case rowdef.EncodingString, rowdef.EncodingBytes:
		s, ok := v.(string)
		if !ok {
			return nil, errors.NewValueOutOfRangeError(fmt.Sprintf("%v is not a string for %s", v, fd))
		}
		return s, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return nil, errors.NewValueOutOfRangeError(fmt.Sprintf("%v is not a number for %s", v, fd))
	}
	var (
		res interface{}
		err error
	)
	switch fd.Type().Encoding {
	case rowdef.EncodingInt:
		res, err = n.Int64()
	case rowdef.EncodingUint:
		res, err = strconv.ParseUint(n.String(), 10, 64)
	default:
		res, err = n.Float64()
	}
	if err != nil {
		return nil, errors.NewValueOutOfRangeError(fmt.Sprintf("%s cannot be stored in %s", n, fd))
	}
	return res, nil
}
