package intercomtest

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.dfds.cloud/intercom-hubspot-sync/internal/intercom"
)

// MockIntercomClient is used to mock the handler.Source interface.
type MockIntercomClient struct {
	mock.Mock
}

func (c *MockIntercomClient) FetchAllUsers(ctx context.Context) ([]intercom.User, error) {
	args := c.Called(ctx)
	return args.Get(0).([]intercom.User), args.Error(1)
}

func (c *MockIntercomClient) FetchAllCompanies(ctx context.Context) ([]intercom.Company, error) {
	args := c.Called(ctx)
	return args.Get(0).([]intercom.Company), args.Error(1)
}

func (c *MockIntercomClient) GetUsersByCompany(ctx context.Context, companyId string) ([]intercom.User, error) {
	args := c.Called(ctx, companyId)
	return args.Get(0).([]intercom.User), args.Error(1)
}
