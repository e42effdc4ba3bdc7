package ztopk

import (
	"io"
)

type inMemoryScan struct {
	values []int64
}

var _ Iterator = (*inMemoryScan)(nil)

func NewInMemoryScan(values []int64) *inMemoryScan {
	return &inMemoryScan{
		values: values,
	}
}

func (m *inMemoryScan) Next() (int64, error) {
	if len(m.values) == 0 {
		return 0, io.EOF
	}
	v := m.values[0]
	m.values = m.values[1:]
	return v, nil
}

func (m *inMemoryScan) Close() error {
	m.values = nil
	return nil
}
