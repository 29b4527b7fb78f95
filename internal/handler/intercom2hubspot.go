package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.dfds.cloud/intercom-hubspot-sync/internal/config"
	"go.dfds.cloud/intercom-hubspot-sync/internal/hubspot"
	"go.dfds.cloud/intercom-hubspot-sync/internal/intercom"
	"go.dfds.cloud/intercom-hubspot-sync/internal/util"
	"go.uber.org/zap"
)

const IntercomToHubSpotName = "intercomToHubSpot"

var recordsSynced *prometheus.CounterVec = promauto.NewCounterVec(prometheus.CounterOpts{
	Name:      "records_synced_total",
	Help:      "Records upserted into HubSpot, by object and action.",
	Namespace: "intercom_hubspot_sync",
}, []string{"object", "action"})

var recordsFailed *prometheus.CounterVec = promauto.NewCounterVec(prometheus.CounterOpts{
	Name:      "records_failed_total",
	Help:      "Records that could not be synced, by object.",
	Namespace: "intercom_hubspot_sync",
}, []string{"object"})

var associations *prometheus.CounterVec = promauto.NewCounterVec(prometheus.CounterOpts{
	Name:      "associations_total",
	Help:      "Contact to company associations, by outcome.",
	Namespace: "intercom_hubspot_sync",
}, []string{"outcome"})

type Source interface {
	FetchAllUsers(ctx context.Context) ([]intercom.User, error)
	FetchAllCompanies(ctx context.Context) ([]intercom.Company, error)
	GetUsersByCompany(ctx context.Context, companyId string) ([]intercom.User, error)
}

type Destination interface {
	UpsertContact(ctx context.Context, user intercom.User) (*hubspot.UpsertResult, error)
	UpsertCompany(ctx context.Context, company intercom.Company) (*hubspot.UpsertResult, error)
	CreateAssociation(ctx context.Context, contactId string, companyId string) error
}

// Intercom2HubSpotHandler runs a single full Intercom to HubSpot pass and
// prints the summary.
func Intercom2HubSpotHandler(ctx context.Context) error {
	conf, err := config.LoadConfig()
	if err != nil {
		return err
	}

	source := intercom.NewIntercomClient(intercom.Config{
		BaseUrl:     conf.Intercom.BaseUrl,
		AccessToken: conf.Intercom.AccessToken,
		ApiVersion:  conf.Intercom.ApiVersion,
		PerPage:     conf.Intercom.PerPage,
		Timeout:     conf.Sync.HttpTimeout,
	})

	destination := hubspot.NewHubSpotClient(hubspot.Config{
		BaseUrl:            conf.HubSpot.BaseUrl,
		AccessToken:        conf.HubSpot.AccessToken,
		ExternalIdProperty: conf.HubSpot.ExternalIdProperty,
		SearchRetries:      conf.HubSpot.SearchRetries,
		SearchBackoff:      conf.HubSpot.SearchBackoff,
		Timeout:            conf.Sync.HttpTimeout,
	})

	summary, err := SyncIntercomToHubSpot(ctx, source, destination)
	if summary != nil {
		out, yamlErr := summary.Yaml()
		if yamlErr == nil {
			fmt.Print(out)
		}
	}

	return err
}

// SyncIntercomToHubSpot upserts companies, then contacts, then links every
// company's members. Failures of single records are collected in the summary
// and never stop the pass; only a cancelled context does.
func SyncIntercomToHubSpot(ctx context.Context, source Source, destination Destination) (*Summary, error) {
	summary := &Summary{StartedAt: time.Now()}
	defer func() {
		summary.Duration = time.Since(summary.StartedAt)
	}()

	companies, err := source.FetchAllCompanies(ctx)
	if err != nil {
		util.Logger.Warn(fmt.Sprintf("Continuing with %d companies fetched before the error", len(companies)), zap.String("jobName", IntercomToHubSpotName), zap.Error(err))
		summary.FetchErrors = append(summary.FetchErrors, fmt.Sprintf("companies: %s", err))
	}

	users, err := source.FetchAllUsers(ctx)
	if err != nil {
		util.Logger.Warn(fmt.Sprintf("Continuing with %d users fetched before the error", len(users)), zap.String("jobName", IntercomToHubSpotName), zap.Error(err))
		summary.FetchErrors = append(summary.FetchErrors, fmt.Sprintf("users: %s", err))
	}

	summary.CompaniesFetched = len(companies)
	summary.UsersFetched = len(users)
	util.Logger.Info(fmt.Sprintf("Found %d companies and %d users in Intercom", len(companies), len(users)), zap.String("jobName", IntercomToHubSpotName))

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	companyIdMap := make(map[string]string)
	for _, company := range companies {
		select {
		case <-ctx.Done():
			util.Logger.Info("Job cancelled", zap.String("jobName", IntercomToHubSpotName))
			return summary, ctx.Err()
		default:
		}

		result, err := destination.UpsertCompany(ctx, company)
		if err != nil {
			util.Logger.Error(fmt.Sprintf("Skipping company %s due to error", company.ID), zap.String("jobName", IntercomToHubSpotName), zap.String("intercomId", company.ID), zap.Error(err))
			recordsFailed.WithLabelValues(string(ObjectCompany)).Inc()
			summary.addFailure(ObjectCompany, company.ID, err)
			continue
		}

		companyIdMap[company.ID] = result.Record.ID
		recordsSynced.WithLabelValues(string(ObjectCompany), string(result.Action)).Inc()
		switch result.Action {
		case hubspot.ActionCreated:
			summary.CompaniesCreated++
		case hubspot.ActionUpdated:
			summary.CompaniesUpdated++
		}
	}
	summary.CompaniesSynced = len(companyIdMap)
	util.Logger.Info(fmt.Sprintf("Companies sync complete. Total %d synced", summary.CompaniesSynced), zap.String("jobName", IntercomToHubSpotName))

	contactIdMap := make(map[string]string)
	for _, user := range users {
		select {
		case <-ctx.Done():
			util.Logger.Info("Job cancelled", zap.String("jobName", IntercomToHubSpotName))
			return summary, ctx.Err()
		default:
		}

		result, err := destination.UpsertContact(ctx, user)
		if err != nil {
			util.Logger.Error(fmt.Sprintf("Skipping user %s (%s) due to error", user.ID, user.Email), zap.String("jobName", IntercomToHubSpotName), zap.String("intercomId", user.ID), zap.Error(err))
			recordsFailed.WithLabelValues(string(ObjectContact)).Inc()
			summary.addFailure(ObjectContact, user.ID, err)
			continue
		}

		contactIdMap[user.ID] = result.Record.ID
		summary.ContactsSynced++
		recordsSynced.WithLabelValues(string(ObjectContact), string(result.Action)).Inc()
		switch result.Action {
		case hubspot.ActionCreated:
			summary.ContactsCreated++
		case hubspot.ActionUpdated:
			summary.ContactsUpdated++
		}
	}
	util.Logger.Info(fmt.Sprintf("Contacts sync complete. Total %d synced", summary.ContactsSynced), zap.String("jobName", IntercomToHubSpotName))

	for _, company := range companies {
		select {
		case <-ctx.Done():
			util.Logger.Info("Job cancelled", zap.String("jobName", IntercomToHubSpotName))
			return summary, ctx.Err()
		default:
		}

		hubspotCompanyId, ok := companyIdMap[company.ID]
		if !ok {
			util.Logger.Debug(fmt.Sprintf("Skipping associations of company %s: not found in HubSpot", company.ID), zap.String("jobName", IntercomToHubSpotName))
			continue
		}

		members, err := source.GetUsersByCompany(ctx, company.ID)
		if err != nil {
			util.Logger.Warn(fmt.Sprintf("Unable to fetch users of company %s, treating as empty", company.ID), zap.String("jobName", IntercomToHubSpotName), zap.Error(err))
			summary.FetchErrors = append(summary.FetchErrors, fmt.Sprintf("members of %s: %s", company.ID, err))
			continue
		}
		if len(members) == 0 {
			util.Logger.Debug(fmt.Sprintf("No users found for company %s", company.ID), zap.String("jobName", IntercomToHubSpotName))
			continue
		}

		for _, member := range members {
			hubspotContactId, ok := contactIdMap[member.ID]
			if !ok {
				util.Logger.Debug(fmt.Sprintf("Skipping user %s: not found in HubSpot", member.ID), zap.String("jobName", IntercomToHubSpotName))
				summary.AssociationsSkipped++
				continue
			}

			err := destination.CreateAssociation(ctx, hubspotContactId, hubspotCompanyId)
			if err != nil {
				associations.WithLabelValues("failed").Inc()
				summary.AssociationsFailed++
				summary.addFailure(ObjectAssociation, fmt.Sprintf("%s/%s", member.ID, company.ID), err)
				continue
			}

			associations.WithLabelValues("created").Inc()
			summary.AssociationsCreated++
		}
	}

	util.Logger.Info("Sync finished",
		zap.String("jobName", IntercomToHubSpotName),
		zap.Int("companiesSynced", summary.CompaniesSynced),
		zap.Int("contactsSynced", summary.ContactsSynced),
		zap.Int("associationsCreated", summary.AssociationsCreated),
		zap.Int("failures", len(summary.Failures)))

	return summary, nil
}
