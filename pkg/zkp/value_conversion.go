package zkp

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// TimestampOffset shifts epoch seconds so dates before 1970 stay positive in the field.
const TimestampOffset int64 = 1 << 40

func convertToVariable(field FieldDefinition, value interface{}) (*big.Int, error) {
	if value == nil {
		return nil, fmt.Errorf("value for field '%s' is nil", field.Name)
	}

	switch field.Type {
	case FieldTypeInteger, FieldTypeNumber:
		v, err := convertToInt(value)
		if err != nil {
			return nil, err
		}
		return reduce(v), nil
	case FieldTypeBoolean:
		v, err := convertToBool(value)
		if err != nil {
			return nil, err
		}
		return big.NewInt(v), nil
	case FieldTypeString:
		if v, ok := value.(*big.Int); ok {
			return reduce(v), nil
		}
		return HashToField([]byte(fmt.Sprint(value))), nil
	case FieldTypeDate:
		seconds, err := convertToTimestamp(value)
		if err != nil {
			return nil, err
		}
		return big.NewInt(seconds + TimestampOffset), nil
	case FieldTypeField:
		return convertToField(value)
	default:
		return nil, fmt.Errorf("unsupported field type '%s'", field.Type)
	}
}

// EncodeTimestamp returns the field encoding used for date fields.
func EncodeTimestamp(t time.Time) int64 {
	return t.Unix() + TimestampOffset
}

func convertToTimestamp(value interface{}) (int64, error) {
	switch v := value.(type) {
	case time.Time:
		return v.Unix(), nil
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.Unix(), nil
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t.Unix(), nil
		}
		return 0, fmt.Errorf("unable to parse date '%s'", v)
	default:
		seconds, err := convertToInt(value)
		if err != nil {
			return 0, err
		}
		if !seconds.IsInt64() {
			return 0, fmt.Errorf("timestamp out of range")
		}
		return seconds.Int64(), nil
	}
}

func convertToField(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return reduce(v), nil
	case big.Int:
		return reduce(&v), nil
	case []byte:
		return reduce(new(big.Int).SetBytes(v)), nil
	case string:
		s := strings.TrimSpace(v)
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s, base = s[2:], 16
		}
		parsed, ok := new(big.Int).SetString(s, base)
		if !ok {
			return nil, fmt.Errorf("invalid field element '%s'", v)
		}
		return reduce(parsed), nil
	default:
		n, err := convertToInt(value)
		if err != nil {
			return nil, err
		}
		return reduce(n), nil
	}
}

func convertToInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint8:
		return big.NewInt(int64(v)), nil
	case uint16:
		return big.NewInt(int64(v)), nil
	case uint32:
		return big.NewInt(int64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case float32:
		return big.NewInt(int64(v)), nil
	case float64:
		return big.NewInt(int64(v)), nil
	case bool:
		if v {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case string:
		if v == "" {
			return nil, fmt.Errorf("empty string cannot be converted to integer")
		}
		if parsed, ok := new(big.Int).SetString(strings.TrimSpace(v), 10); ok {
			return parsed, nil
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse integer: %w", err)
		}
		return big.NewInt(int64(parsed)), nil
	case fmt.Stringer:
		return convertToInt(v.String())
	default:
		return nil, fmt.Errorf("unsupported numeric type %T", value)
	}
}

func convertToBool(value interface{}) (int64, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return 0, fmt.Errorf("unable to parse boolean: %w", err)
		}
		if parsed {
			return 1, nil
		}
		return 0, nil
	default:
		n, err := convertToInt(value)
		if err != nil {
			return 0, fmt.Errorf("unsupported boolean type %T", value)
		}
		switch n.Int64() {
		case 0, 1:
			return n.Int64(), nil
		default:
			return 0, fmt.Errorf("boolean field expects 0 or 1, got %s", n)
		}
	}
}
