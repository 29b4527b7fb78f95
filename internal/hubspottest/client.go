package hubspottest

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.dfds.cloud/intercom-hubspot-sync/internal/hubspot"
	"go.dfds.cloud/intercom-hubspot-sync/internal/intercom"
)

// MockHubSpotClient is used to mock the handler.Destination interface.
type MockHubSpotClient struct {
	mock.Mock
}

func (c *MockHubSpotClient) UpsertContact(ctx context.Context, user intercom.User) (*hubspot.UpsertResult, error) {
	args := c.Called(ctx, user)
	result, _ := args.Get(0).(*hubspot.UpsertResult)
	return result, args.Error(1)
}

func (c *MockHubSpotClient) UpsertCompany(ctx context.Context, company intercom.Company) (*hubspot.UpsertResult, error) {
	args := c.Called(ctx, company)
	result, _ := args.Get(0).(*hubspot.UpsertResult)
	return result, args.Error(1)
}

func (c *MockHubSpotClient) CreateAssociation(ctx context.Context, contactId string, companyId string) error {
	args := c.Called(ctx, contactId, companyId)
	return args.Error(0)
}

// Created is a helper for mocked upserts that create a record with the given id.
func Created(id string) *hubspot.UpsertResult {
	return &hubspot.UpsertResult{Action: hubspot.ActionCreated, Record: &hubspot.Record{ID: id}}
}

// Updated is a helper for mocked upserts that update the record with the given id.
func Updated(id string) *hubspot.UpsertResult {
	return &hubspot.UpsertResult{Action: hubspot.ActionUpdated, Record: &hubspot.Record{ID: id}}
}
