package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"labinsight/internal/port"
)

// MockTextGenerator is a mock implementation of port.TextGenerator.
type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Generate(ctx context.Context, input port.GenerateInput) (*port.GenerateOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.GenerateOutput), args.Error(1)
}
