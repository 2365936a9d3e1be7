// Package datasettest provides an in-memory dataset for tests.
package datasettest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kovetskiy/exomesh/dataset"
)

type Memory struct {
	mu sync.Mutex

	format     dataset.Format
	dims       map[string]int
	values     map[string][]float64
	strings    map[string][]string
	attributes map[string]map[string]string
	reads      map[string]int
	closes     int
}

var _ dataset.Dataset = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		format:     dataset.FormatClassic64,
		dims:       map[string]int{},
		values:     map[string][]float64{},
		strings:    map[string][]string{},
		attributes: map[string]map[string]string{},
		reads:      map[string]int{},
	}
}

func (m *Memory) WithFormat(format dataset.Format) *Memory {
	m.format = format
	return m
}

func (m *Memory) WithDimension(name string, length int) *Memory {
	m.dims[name] = length
	return m
}

func (m *Memory) WithValues(name string, values ...float64) *Memory {
	m.values[name] = values
	return m
}

func (m *Memory) WithStrings(name string, values ...string) *Memory {
	m.strings[name] = values
	return m
}

func (m *Memory) WithAttribute(variable, name, value string) *Memory {
	if m.attributes[variable] == nil {
		m.attributes[variable] = map[string]string{}
	}

	m.attributes[variable][name] = value

	return m
}

// Without removes a variable or a dimension, used to derive broken files
// from good ones.
func (m *Memory) Without(name string) *Memory {
	delete(m.dims, name)
	delete(m.values, name)
	delete(m.strings, name)
	return m
}

// Closes reports how many times Close was called.
func (m *Memory) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closes
}

// Reads reports how many times a variable was read.
func (m *Memory) Reads(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reads[name]
}

func (m *Memory) Format() dataset.Format {
	return m.format
}

func (m *Memory) Variables() []string {
	names := []string{}
	for name := range m.values {
		names = append(names, name)
	}

	for name := range m.strings {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (m *Memory) HasVariable(name string) bool {
	_, numeric := m.values[name]
	_, text := m.strings[name]

	return numeric || text
}

func (m *Memory) Dimension(name string) (int, bool) {
	length, ok := m.dims[name]
	return length, ok
}

func (m *Memory) Float64s(name string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	values, ok := m.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", dataset.ErrNoVariable, name)
	}

	m.reads[name]++

	return append([]float64(nil), values...), nil
}

func (m *Memory) Ints(name string) ([]int, error) {
	values, err := m.Float64s(name)
	if err != nil {
		return nil, err
	}

	ints := make([]int, len(values))
	for i, value := range values {
		ints[i] = int(value)
	}

	return ints, nil
}

func (m *Memory) Strings(name string) ([]string, error) {
	values, ok := m.strings[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", dataset.ErrNoVariable, name)
	}

	return append([]string(nil), values...), nil
}

func (m *Memory) Attribute(variable, name string) (string, bool) {
	value, ok := m.attributes[variable][name]
	return value, ok
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closes++

	return nil
}
