package services

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/gomail.v2"

	"github.com/lingora/lingora_backend/models"
)

const (
	dispatchInterval = time.Minute
	dispatchBatch    = 25
)

// EmailJobStore is the dispatcher's view of the email queue.
type EmailJobStore interface {
	ListPending(ctx context.Context, limit int) ([]models.EmailJob, error)
	MarkSent(ctx context.Context, jobID primitive.ObjectID) error
	MarkFailed(ctx context.Context, jobID primitive.ObjectID) error
}

// Mailer sends a single email job.
type Mailer interface {
	Send(job *models.EmailJob) error
}

// SMTPMailer delivers email jobs over SMTP.
type SMTPMailer struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewSMTPMailerFromEnv reads the SMTP settings from the environment.
func NewSMTPMailerFromEnv() *SMTPMailer {
	port := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &port)
	}

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = os.Getenv("SMTP_USER")
	}

	return &SMTPMailer{
		host: os.Getenv("SMTP_HOST"),
		port: port,
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASS"),
		from: from,
	}
}

func (m *SMTPMailer) Send(job *models.EmailJob) error {
	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", job.Email)
	message.SetHeader("Subject", job.Subject)
	message.SetBody("text/plain", job.Body)

	dialer := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	return dialer.DialAndSend(message)
}

// EmailDispatcher is the background worker that drains pending email jobs.
// Failed jobs are marked failed and logged; they are not retried.
type EmailDispatcher struct {
	jobs   EmailJobStore
	mailer Mailer
	log    *logrus.Entry

	// Interval may be overridden before Start. Defaults to dispatchInterval.
	Interval time.Duration

	mu      sync.Mutex
	done    chan struct{}
	started bool
}

func NewEmailDispatcher(jobs EmailJobStore, mailer Mailer) *EmailDispatcher {
	return &EmailDispatcher{
		jobs:     jobs,
		mailer:   mailer,
		log:      logrus.WithField("service", "email-dispatcher"),
		Interval: dispatchInterval,
	}
}

// Start launches the dispatch loop. Calling Start on a running dispatcher is
// a no-op.
func (d *EmailDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.done = make(chan struct{})
	done := d.done
	d.mu.Unlock()

	go d.loop(ctx, done)
}

// Stop cancels the dispatch loop. Safe to call more than once.
func (d *EmailDispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return
	}
	d.started = false
	close(d.done)
}

func (d *EmailDispatcher) loop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DispatchPending(ctx)
		}
	}
}

// DispatchPending sends one batch of pending jobs. Exposed so scheduled jobs
// can trigger a drain outside the timer.
func (d *EmailDispatcher) DispatchPending(ctx context.Context) {
	jobs, err := d.jobs.ListPending(ctx, dispatchBatch)
	if err != nil {
		d.log.WithError(err).Error("failed to list pending email jobs")
		return
	}

	for i := range jobs {
		job := &jobs[i]
		if err := d.mailer.Send(job); err != nil {
			d.log.WithFields(logrus.Fields{
				"jobId": job.ID.Hex(),
				"to":    job.Email,
			}).WithError(err).Warn("failed to send email")
			if markErr := d.jobs.MarkFailed(ctx, job.ID); markErr != nil {
				d.log.WithField("jobId", job.ID.Hex()).WithError(markErr).Error("failed to mark email job failed")
			}
			continue
		}

		if err := d.jobs.MarkSent(ctx, job.ID); err != nil {
			d.log.WithField("jobId", job.ID.Hex()).WithError(err).Error("failed to mark email job sent")
		}
	}
}
