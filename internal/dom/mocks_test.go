// File: internal/dom/mocks_test.go
package dom

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockElement is a testify mock of Element.
type MockElement struct {
	mock.Mock
	id  ElementID
	tag string
}

func newMockElement(id ElementID, tag string) *MockElement {
	return &MockElement{id: id, tag: tag}
}

func (m *MockElement) ID() ElementID   { return m.id }
func (m *MockElement) TagName() string { return m.tag }

func (m *MockElement) Attribute(ctx context.Context, name string) (string, bool) {
	args := m.Called(ctx, name)
	return args.String(0), args.Bool(1)
}

func (m *MockElement) Text(ctx context.Context) (string, bool) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1)
}

func (m *MockElement) Checked(ctx context.Context) (bool, bool) {
	args := m.Called(ctx)
	return args.Bool(0), args.Bool(1)
}

func (m *MockElement) Options(ctx context.Context) ([]Element, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]Element), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockElement) WaitInteractable(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) Click(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) Type(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

// MockPage is a testify mock of Page.
type MockPage struct {
	mock.Mock
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	args := m.Called(ctx, selector)
	if v := args.Get(0); v != nil {
		return v.([]Element), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPage) Search(ctx context.Context, xpath string) ([]Element, error) {
	args := m.Called(ctx, xpath)
	if v := args.Get(0); v != nil {
		return v.([]Element), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	return m.Called(ctx, selector, timeout).Error(0)
}

func (m *MockPage) Close() error {
	return m.Called().Error(0)
}
