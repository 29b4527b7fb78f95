package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/joomcode/errorx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.dfds.cloud/intercom-hubspot-sync/internal/config"
	"go.dfds.cloud/intercom-hubspot-sync/internal/handler"
	"go.dfds.cloud/intercom-hubspot-sync/internal/util"
	"go.uber.org/zap"
)

const IntercomToHubSpotName = handler.IntercomToHubSpotName

var currentJobsGauge prometheus.Gauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name:      "jobs_running",
	Help:      "Current jobs that are running",
	Namespace: "intercom_hubspot_sync",
})

var currentJobStatus *prometheus.GaugeVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name:      "job_is_running",
	Help:      "Is {job_name} running. 1 = in progress, 0 = not running",
	Namespace: "intercom_hubspot_sync",
}, []string{"name"})

var jobFailedCount *prometheus.CounterVec = promauto.NewCounterVec(prometheus.CounterOpts{
	Name:      "job_failed_count",
	Help:      "How many times has {job_name} failed.",
	Namespace: "intercom_hubspot_sync",
}, []string{"name"})

var jobSuccessfulCount *prometheus.CounterVec = promauto.NewCounterVec(prometheus.CounterOpts{
	Name:      "job_success_count",
	Help:      "How many times has {job_name} successfully completed.",
	Namespace: "intercom_hubspot_sync",
}, []string{"name"})

var jobDuration *prometheus.HistogramVec = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:      "job_duration_seconds",
	Help:      "How long {job_name} took.",
	Namespace: "intercom_hubspot_sync",
	Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
}, []string{"name"})

var (
	OrchestratorError = errorx.NewNamespace("orchestrator")
	JobInProgress     = OrchestratorError.NewType("job_in_progress")
	JobNotFound       = OrchestratorError.NewType("job_not_found")
)

// Orchestrator
// Runs the sync jobs of a single invocation, one at a time.
type Orchestrator struct {
	intercomToHubSpotStatus *SyncStatus
	Jobs                    map[string]*Job
	ctx                     context.Context
	pushgatewayUrl          string
}

type SyncStatus struct {
	mu     sync.Mutex
	active bool
}

func (s *SyncStatus) InProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *SyncStatus) SetStatus(status bool) {
	s.mu.Lock()
	s.active = status
	s.mu.Unlock()
}

// tryStart flips the status to active unless it already is.
func (s *SyncStatus) tryStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return false
	}
	s.active = true
	return true
}

func NewOrchestrator(ctx context.Context) *Orchestrator {
	return &Orchestrator{
		intercomToHubSpotStatus: &SyncStatus{active: false},
		Jobs:                    map[string]*Job{},
		ctx:                     ctx,
	}
}

func (o *Orchestrator) Init(conf config.Config) {
	o.pushgatewayUrl = conf.Sync.PushgatewayUrl

	o.Jobs[IntercomToHubSpotName] = &Job{
		Name:    IntercomToHubSpotName,
		Status:  o.intercomToHubSpotStatus,
		context: o.ctx,
		handler: handler.Intercom2HubSpotHandler,
	}
}

// RunJob runs the named job to completion and pushes metrics afterwards when a
// Pushgateway is configured.
func (o *Orchestrator) RunJob(name string) error {
	job, ok := o.Jobs[name]
	if !ok {
		return JobNotFound.New("no job named %s", name)
	}

	err := job.Run()

	if o.pushgatewayUrl != "" {
		if pushErr := PushMetrics(o.pushgatewayUrl, name); pushErr != nil {
			util.Logger.Warn("Unable to push metrics", zap.String("jobName", name), zap.Error(pushErr))
		}
	}

	return err
}

type Job struct {
	Name    string
	Status  *SyncStatus
	context context.Context
	handler func(ctx context.Context) error
}

func (j *Job) Run() error {
	if !j.Status.tryStart() {
		util.Logger.Warn("Can't start Job because Job is already in progress.", zap.String("jobName", j.Name))
		return JobInProgress.New("job %s is already in progress", j.Name)
	}
	defer j.Status.SetStatus(false)

	currentJobsGauge.Inc()
	currentJobStatus.WithLabelValues(j.Name).Set(1)
	util.Logger.Info("Job started", zap.String("jobName", j.Name))
	start := time.Now()

	err := j.handler(j.context)
	if err != nil {
		jobFailedCount.WithLabelValues(j.Name).Inc()
		util.Logger.Error("Job failed", zap.String("jobName", j.Name), zap.Error(err))
	} else {
		jobSuccessfulCount.WithLabelValues(j.Name).Inc()
	}

	jobDuration.WithLabelValues(j.Name).Observe(time.Since(start).Seconds())
	currentJobsGauge.Dec()
	currentJobStatus.WithLabelValues(j.Name).Set(0)
	util.Logger.Info("Job ended", zap.String("jobName", j.Name))

	return err
}

// PushMetrics sends everything in the default registry to a Pushgateway. A
// one-shot run exits before any scraper could see it.
func PushMetrics(url string, job string) error {
	return push.New(url, job).Gatherer(prometheus.DefaultGatherer).Push()
}
