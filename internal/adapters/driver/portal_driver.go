package driver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	"github.com/phoenixclinic/bookingcore/pkg/config"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

var (
	optionRe    = regexp.MustCompile(`(?is)<option[^>]*value="([^"]*)"[^>]*>(.*?)</option>`)
	refRe       = regexp.MustCompile(`(?i)reservation\s*(?:no|number|ref)[:\s#]*([A-Za-z0-9-]+)`)
	fileNoRe    = regexp.MustCompile(`(?i)file\s*(?:no|number)[:\s#]*([A-Za-z0-9-]+)`)
	tagStripRe  = regexp.MustCompile(`<[^>]*>`)
	successWord = regexp.MustCompile(`(?i)(success|confirmed|تم الحجز)`)
)

// PortalDriver implements the ExecutionDriver interface against the
// clinic's form-based scheduling portal. Every operation logs in first;
// the portal expires sessions aggressively and a stale cookie renders a
// login page instead of an error status.
type PortalDriver struct {
	cfg      config.PortalConfig
	client   *http.Client
	matchers []SlotMatcher
	evidence string
}

// NewPortalDriver creates a new portal driver
func NewPortalDriver(cfg config.PortalConfig, evidenceDir string) (providers.ExecutionDriver, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &PortalDriver{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		matchers: DefaultMatchers(),
		evidence: evidenceDir,
	}, nil
}

// FetchSlots retrieves the portal's openings for a provider month
func (d *PortalDriver) FetchSlots(ctx context.Context, providerID, month string) ([]entities.Slot, error) {
	if err := d.login(ctx); err != nil {
		return nil, err
	}

	page, err := d.get(ctx, fmt.Sprintf("/appointments?doctor=%s&month=%s",
		url.QueryEscape(providerID), url.QueryEscape(month)))
	if err != nil {
		return nil, err
	}

	options := parseOptions(page)
	slots := make([]entities.Slot, 0, len(options))
	for _, opt := range options {
		date, timeOfDay, ok := parseLabel(opt.Label)
		if !ok {
			continue
		}
		slots = append(slots, entities.Slot{
			ID:         entities.SlotID(providerID, date, timeOfDay),
			ProviderID: providerID,
			Date:       date,
			Time:       timeOfDay,
			Available:  true,
			RawToken:   opt.Value,
		})
	}
	return slots, nil
}

// BookSlot books the slot described by the job payload
func (d *PortalDriver) BookSlot(ctx context.Context, job *entities.BookingJob) (*providers.BookingResult, error) {
	target := BookingTarget{Date: job.Date, Time: job.Time, RawToken: job.RawToken}
	return d.reserve(ctx, job.ProviderID, job.OwnerID, job.Note, target)
}

// BookFollowUp books the secondary reservation attached to a primary
// booking
func (d *PortalDriver) BookFollowUp(ctx context.Context, primary *entities.BookingJob, followUp *entities.FollowUpReservation) (*providers.BookingResult, error) {
	target := BookingTarget{Date: followUp.Date, Time: followUp.Time, RawToken: followUp.RawToken}
	return d.reserve(ctx, followUp.ProviderID, primary.OwnerID, "", target)
}

func (d *PortalDriver) reserve(ctx context.Context, providerID, ownerID, note string, target BookingTarget) (*providers.BookingResult, error) {
	if err := d.login(ctx); err != nil {
		return nil, err
	}

	page, err := d.get(ctx, fmt.Sprintf("/appointments?doctor=%s&month=%s",
		url.QueryEscape(providerID), url.QueryEscape(target.Date[:7])))
	if err != nil {
		return nil, err
	}

	options := parseOptions(page)
	opt, matcher, found := FindOption(d.matchers, target, options)
	if !found {
		return nil, apperrors.NewPermanentExternalError(
			fmt.Sprintf("no portal option for %s among %d candidates", target, len(options)), nil)
	}
	log.Debug().Str("matcher", matcher).Str("value", opt.Value).Msg("matched portal option")

	form := url.Values{
		"doctor":  {providerID},
		"ss":      {opt.Value},
		"patient": {ownerID},
	}
	if note != "" {
		form.Set("note", note)
	}

	confirmation, err := d.post(ctx, "/appointments/reserve", form)
	if err != nil {
		return nil, err
	}
	if !successWord.MatchString(confirmation) {
		return nil, apperrors.NewPermanentExternalError("portal did not confirm the reservation", nil)
	}

	result := &providers.BookingResult{}
	if m := refRe.FindStringSubmatch(tagStripRe.ReplaceAllString(confirmation, " ")); m != nil {
		result.ExternalRef = m[1]
	}
	result.EvidencePath = d.saveEvidence(confirmation)
	return result, nil
}

// CancelBooking cancels a previously made booking
func (d *PortalDriver) CancelBooking(ctx context.Context, job *entities.CancellationJob) error {
	if err := d.login(ctx); err != nil {
		return err
	}

	form := url.Values{
		"patient": {job.OwnerID},
		"date":    {job.Date},
		"time":    {job.Time},
	}
	if job.ExternalRef != "" {
		form.Set("reservation", job.ExternalRef)
	}

	page, err := d.post(ctx, "/appointments/cancel", form)
	if err != nil {
		return err
	}
	if !successWord.MatchString(page) {
		return apperrors.NewPermanentExternalError("portal did not confirm the cancellation", nil)
	}
	return nil
}

// CreatePatientFile registers a first-time client on the portal
func (d *PortalDriver) CreatePatientFile(ctx context.Context, job *entities.ResourceJob) (string, error) {
	if err := d.login(ctx); err != nil {
		return "", err
	}

	form := url.Values{
		"national_id": {job.OwnerID},
		"name":        {job.OwnerName},
		"phone":       {job.Phone},
	}
	page, err := d.post(ctx, "/patients/new", form)
	if err != nil {
		return "", err
	}

	if m := fileNoRe.FindStringSubmatch(tagStripRe.ReplaceAllString(page, " ")); m != nil {
		return m[1], nil
	}
	return "", apperrors.NewPermanentExternalError("portal did not return a file number", nil)
}

func (d *PortalDriver) login(ctx context.Context) error {
	form := url.Values{
		"username": {d.cfg.Username},
		"password": {d.cfg.Password},
	}
	_, err := d.post(ctx, "/login", form)
	return err
}

func (d *PortalDriver) get(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.BaseURL+path, nil)
	if err != nil {
		return "", apperrors.NewInternalError("building portal request", err)
	}
	return d.do(req)
}

func (d *PortalDriver) post(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.BaseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", apperrors.NewInternalError("building portal request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return d.do(req)
}

func (d *PortalDriver) do(req *http.Request) (string, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return "", apperrors.NewTransientExternalError("portal request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", apperrors.NewTransientExternalError("reading portal response", err)
	}
	if resp.StatusCode >= 500 {
		return "", apperrors.NewTransientExternalError(
			fmt.Sprintf("portal returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return "", apperrors.NewPermanentExternalError(
			fmt.Sprintf("portal returned %d", resp.StatusCode), nil)
	}
	return string(body), nil
}

// saveEvidence writes the confirmation page to the evidence directory.
// Evidence is best effort; a write failure is logged and the booking
// proceeds.
func (d *PortalDriver) saveEvidence(page string) string {
	if d.evidence == "" {
		return ""
	}
	name := fmt.Sprintf("%s-%s.html", time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8])
	path := filepath.Join(d.evidence, name)
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to save booking evidence")
		return ""
	}
	return path
}

// parseOptions extracts the slot selector entries from a portal page.
func parseOptions(page string) []PortalOption {
	matches := optionRe.FindAllStringSubmatch(page, -1)
	options := make([]PortalOption, 0, len(matches))
	for _, m := range matches {
		value := strings.TrimSpace(m[1])
		if value == "" {
			continue
		}
		options = append(options, PortalOption{
			Value: value,
			Label: strings.TrimSpace(tagStripRe.ReplaceAllString(m[2], " ")),
		})
	}
	return options
}

// parseLabel extracts a normalized date and time from an option label.
// Labels arrive as "DD-MM-YYYY H:M" with optional Arabic digits and
// meridiem markers.
func parseLabel(label string) (date, timeOfDay string, ok bool) {
	norm := Normalize(label)
	fields := strings.Fields(norm)
	if len(fields) < 2 {
		return "", "", false
	}

	dateParts := strings.Split(fields[0], "-")
	if len(dateParts) != 3 {
		return "", "", false
	}
	d, m, y := dateParts[0], dateParts[1], dateParts[2]
	if len(y) != 4 {
		// already ISO ordered
		y, m, d = dateParts[0], dateParts[1], dateParts[2]
		if len(y) != 4 {
			return "", "", false
		}
	}

	timeParts := strings.Split(fields[1], ":")
	if len(timeParts) != 2 {
		return "", "", false
	}
	hour, minute := timeParts[0], timeParts[1]
	if len(fields) > 2 && strings.EqualFold(fields[2], "PM") && hour != "12" {
		hour = fmt.Sprintf("%d", atoiSafe(hour)+12)
	}
	if len(fields) > 2 && strings.EqualFold(fields[2], "AM") && hour == "12" {
		hour = "0"
	}

	return fmt.Sprintf("%s-%02d-%02d", y, atoiSafe(m), atoiSafe(d)),
		fmt.Sprintf("%02d:%02d", atoiSafe(hour), atoiSafe(minute)), true
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
