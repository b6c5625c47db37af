// Package job runs the daily forecast mailing: fetch every configured
// forecast CSV, email it to each recipient and report who received what.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"forecast-mailer/internal/config"
	"forecast-mailer/internal/mail"
	"forecast-mailer/internal/ocf"
	"forecast-mailer/internal/summary"
)

const emailBody = "<span>Good morning,<br/><br/>" +
	"Find attached the OCF Day Ahead forecast for tomorrow.<br/><br/>" +
	"Kind regards,<br/>" +
	"The Open Climate Fix Team" +
	"<br/><br/><br/></span>"

// Source is a forecast category such as wind or solar.
type Source struct {
	Name  string // path segment in the forecast API
	Label string // human readable, used in subjects and the summary
}

// SourcesFromNames builds Sources with title-cased labels.
func SourcesFromNames(names []string) []Source {
	title := cases.Title(language.English)
	sources := make([]Source, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		sources = append(sources, Source{Name: n, Label: title.String(n)})
	}
	return sources
}

// Upstream fetches forecasts from the OCF API.
type Upstream interface {
	Token(ctx context.Context) (string, error)
	FetchCSV(ctx context.Context, token, source string) (ocf.Forecast, error)
}

// Settings describe what a Runner sends and to whom.
type Settings struct {
	Sources    []Source
	Recipients []string
	Batching   string
	Delay      time.Duration
	From       string
	ReplyTo    string
	Tag        string
}

// SettingsFromConfig derives Settings from the process configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Sources:    SourcesFromNames(cfg.Upstream.Sources),
		Recipients: cfg.Email.RecipientList(),
		Batching:   cfg.Email.Batching,
		Delay:      cfg.Email.SendDelay,
		From:       cfg.Email.From,
		ReplyTo:    cfg.Email.ReplyTo,
		Tag:        cfg.Email.Tag,
	}
}

// Runner fetches the configured forecasts and mails them to every recipient.
type Runner struct {
	upstream   Upstream
	sender     mail.Sender
	settings   Settings
	aggregator *summary.Aggregator
	logger     *slog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock overrides the clock used to date the email subjects.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithSleepFunc overrides the pause between recipients.
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Runner) { r.sleep = fn }
}

// NewRunner returns a Runner. A nil logger falls back to slog.Default().
func NewRunner(upstream Upstream, sender mail.Sender, settings Settings, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		upstream:   upstream,
		sender:     sender,
		settings:   settings,
		aggregator: summary.NewAggregator(logger),
		logger:     logger,
		now:        time.Now,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TomorrowDate returns the UTC calendar date after now as YYYY-MM-DD.
func TomorrowDate(now time.Time) string {
	return now.UTC().AddDate(0, 0, 1).Format("2006-01-02")
}

type prepared struct {
	source   Source
	forecast ocf.Forecast
	subject  string
	message  string
}

// Run fetches every forecast, delivers it and returns the delivery summary.
// Token and fetch failures abort the run with an *Error; rejected emails are
// recorded in the summary and the run continues.
func (r *Runner) Run(ctx context.Context) (report string, err error) {
	span, ctx := tracer.StartSpanFromContext(ctx, "forecast.run")
	defer func() { span.Finish(tracer.WithError(err)) }()

	r.logger.InfoContext(ctx, "getting OCF forecast")
	token, err := r.upstream.Token(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "OCF token exchange failed", "error", err)
		return "", &Error{Kind: KindUpstreamToken, Message: "OCF token error: " + errorText(err), Err: err}
	}

	date := TomorrowDate(r.now())
	items := make([]*prepared, 0, len(r.settings.Sources))
	for _, src := range r.settings.Sources {
		fc, err := r.upstream.FetchCSV(ctx, token, src.Name)
		if err != nil {
			r.logger.ErrorContext(ctx, "OCF forecast fetch failed", "source", src.Name, "error", err)
			return "", &Error{
				Kind:    KindUpstreamFetch,
				Message: fmt.Sprintf("OCF %s forecast CSV fetch error: %s", src.Name, errorText(err)),
				Err:     err,
			}
		}
		items = append(items, &prepared{
			source:   src,
			forecast: fc,
			subject:  fmt.Sprintf("DA %s Forecast for %s", src.Label, date),
			message:  src.Label + " emails sent to ",
		})
	}

	recipients := r.settings.Recipients
	if len(recipients) == 0 {
		recipients = []string{""}
	}
	r.logger.InfoContext(ctx, "CSVs ready, sending emails", "recipients", recipients, "batching", r.settings.Batching)

	if r.settings.Batching == config.BatchAll {
		r.deliverBatch(ctx, items, recipients)
	} else if err := r.deliverEach(ctx, items, recipients); err != nil {
		return "", err
	}

	sections := make([]string, len(items))
	for i, it := range items {
		r.logger.InfoContext(ctx, "delivery summary", "source", it.source.Label, "summary", it.message)
		sections[i] = it.message
	}
	return strings.Join(sections, summary.Separator), nil
}

// deliverEach sends a separate email per recipient so addresses stay private
// and each delivery can be tracked on its own.
func (r *Runner) deliverEach(ctx context.Context, items []*prepared, recipients []string) error {
	for i, rcpt := range recipients {
		r.logger.InfoContext(ctx, "sending forecasts", "recipient", rcpt)
		for _, it := range items {
			result := r.sender.Send(ctx, r.message(it, []string{rcpt}))
			it.message = r.aggregator.CheckSentAndBuild(it.message, it.source.Label, result, rcpt, len(recipients), i)
		}
		if i == len(recipients)-1 {
			break
		}
		if err := r.sleep(ctx, r.settings.Delay); err != nil {
			return fmt.Errorf("run interrupted after %d of %d recipients: %w", i+1, len(recipients), err)
		}
	}
	return nil
}

// deliverBatch sends a single email per source addressed to every recipient.
func (r *Runner) deliverBatch(ctx context.Context, items []*prepared, recipients []string) {
	for _, it := range items {
		result := r.sender.Send(ctx, r.message(it, recipients))
		if result.IsError() {
			it.message = r.aggregator.CheckSentAndBuild(it.message, it.source.Label, result, "", len(recipients), 0)
			continue
		}
		for i, rcpt := range recipients {
			it.message = r.aggregator.CheckSentAndBuild(it.message, it.source.Label, result, rcpt, len(recipients), i)
		}
	}
}

func (r *Runner) message(it *prepared, to []string) mail.Message {
	msg := mail.Message{
		From:    r.settings.From,
		ReplyTo: r.settings.ReplyTo,
		To:      to,
		Subject: it.subject,
		HTML:    emailBody,
		Attachments: []mail.Attachment{{
			Filename:    it.forecast.Filename,
			Content:     it.forecast.Content,
			ContentType: mail.CSVContentType,
		}},
	}
	if r.settings.Tag != "" {
		msg.Tags = []mail.Tag{{Name: "category", Value: r.settings.Tag}}
	}
	return msg
}

// errorText prefers the upstream response body over the wrapped error chain.
func errorText(err error) string {
	var statusErr *ocf.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Body
	}
	return err.Error()
}
