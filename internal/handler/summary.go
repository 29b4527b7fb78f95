package handler

import (
	"time"

	"gopkg.in/yaml.v2"
)

type ObjectKind string

const (
	ObjectCompany     ObjectKind = "company"
	ObjectContact     ObjectKind = "contact"
	ObjectAssociation ObjectKind = "association"
)

// Failure records why a single record could not be synced.
type Failure struct {
	Object   ObjectKind `yaml:"object"`
	SourceId string     `yaml:"sourceId"`
	Reason   string     `yaml:"reason"`
}

type Summary struct {
	StartedAt time.Time     `yaml:"startedAt"`
	Duration  time.Duration `yaml:"duration"`

	CompaniesFetched int `yaml:"companiesFetched"`
	UsersFetched     int `yaml:"usersFetched"`

	CompaniesSynced  int `yaml:"companiesSynced"`
	CompaniesCreated int `yaml:"companiesCreated"`
	CompaniesUpdated int `yaml:"companiesUpdated"`

	ContactsSynced  int `yaml:"contactsSynced"`
	ContactsCreated int `yaml:"contactsCreated"`
	ContactsUpdated int `yaml:"contactsUpdated"`

	AssociationsCreated int `yaml:"associationsCreated"`
	AssociationsFailed  int `yaml:"associationsFailed"`
	// AssociationsSkipped counts members whose contact never made it to HubSpot.
	AssociationsSkipped int `yaml:"associationsSkipped"`

	FetchErrors []string  `yaml:"fetchErrors,omitempty"`
	Failures    []Failure `yaml:"failures,omitempty"`
}

func (s *Summary) addFailure(object ObjectKind, sourceId string, err error) {
	s.Failures = append(s.Failures, Failure{Object: object, SourceId: sourceId, Reason: err.Error()})
}

func (s *Summary) Yaml() (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
