package dataset

import (
	"fmt"
	"math"
	"strings"

	"github.com/reconquest/karma-go"
)

func toFloat64s(values interface{}) ([]float64, error) {
	switch values := values.(type) {
	case []float64:
		return values, nil
	case []float32:
		return convert(values), nil
	case []int64:
		return convert(values), nil
	case []int32:
		return convert(values), nil
	case []int16:
		return convert(values), nil
	case []int8:
		return convert(values), nil
	case []uint8:
		return convert(values), nil
	case []int:
		return convert(values), nil
	}

	return nil, karma.Describe("type", fmt.Sprintf("%T", values)).Format(
		nil,
		"unsupported numeric type",
	)
}

type number interface {
	~float32 | ~float64 | ~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8
}

func convert[T number](values []T) []float64 {
	result := make([]float64, len(values))
	for i, value := range values {
		result[i] = float64(value)
	}

	return result
}

func toInts(values []float64) []int {
	result := make([]int, len(values))
	for i, value := range values {
		result[i] = int(math.Round(value))
	}

	return result
}

func splitChars(chars []byte, width int) []string {
	if width <= 0 {
		return nil
	}

	rows := make([]string, 0, len(chars)/width)
	for offset := 0; offset+width <= len(chars); offset += width {
		rows = append(rows, trimName(string(chars[offset:offset+width])))
	}

	return rows
}

func trimName(name string) string {
	if i := strings.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}

	return strings.TrimRight(name, " ")
}
