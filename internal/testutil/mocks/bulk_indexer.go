package mocks

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/stretchr/testify/mock"
)

// BulkIndexer is a mock of testutil.BulkIndexer.
type BulkIndexer struct {
	mock.Mock
}

// Add provides a mock function with given fields: ctx, item
func (m *BulkIndexer) Add(ctx context.Context, item esutil.BulkIndexerItem) error {
	ret := m.Called(ctx, item)
	return ret.Error(0)
}

// Close provides a mock function with given fields: ctx
func (m *BulkIndexer) Close(ctx context.Context) error {
	ret := m.Called(ctx)
	return ret.Error(0)
}

// Stats provides a mock function with no fields
func (m *BulkIndexer) Stats() esutil.BulkIndexerStats {
	ret := m.Called()
	return ret.Get(0).(esutil.BulkIndexerStats)
}

// NewBulkIndexer creates a new BulkIndexer mock and registers a cleanup that
// asserts its expectations.
func NewBulkIndexer(t interface {
	mock.TestingT
	Cleanup(func())
}) *BulkIndexer {
	m := &BulkIndexer{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
