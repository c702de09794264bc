// Package adapters connects external systems to the pipeline: the IMAP
// mailbox source feeding the inbox and the CRM lookup callbacks handed to the
// extractor.
package adapters

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	imap "github.com/BrianLeishman/go-imap"

	inboxrepo "crmsync_backend/internal/inbox/repository"
	inboxservice "crmsync_backend/internal/inbox/service"
	inboxtransport "crmsync_backend/internal/inbox/transport"
	"crmsync_backend/platform/config"
	"crmsync_backend/platform/logger"
)

// EventIngestor is the inbox ingest path the mailbox source writes into.
type EventIngestor interface {
	Ingest(ctx context.Context, req inboxtransport.IngestEventRequest) (inboxtransport.IngestEventResponse, error)
}

// MailboxSource pulls new emails from an IMAP folder into the inbox. It
// tracks the highest seen UID per mailbox in the watermark store so each Pull
// only fetches messages that arrived since the previous one.
type MailboxSource struct {
	cfg        config.MailboxConfig
	ingestor   EventIngestor
	watermarks inboxrepo.WatermarkStore
	log        *logger.Logger
}

// NewMailboxSource creates an IMAP mailbox source.
func NewMailboxSource(cfg config.MailboxConfig, ingestor EventIngestor, watermarks inboxrepo.WatermarkStore, log *logger.Logger) *MailboxSource {
	return &MailboxSource{cfg: cfg, ingestor: ingestor, watermarks: watermarks, log: log}
}

// Name returns the source identifier used for watermarks and external ids.
func (s *MailboxSource) Name() string {
	return fmt.Sprintf("imap:%s:%s", s.cfg.GetIMAPUsername(), s.cfg.GetIMAPFolder())
}

// Pull fetches mail above the stored watermark and ingests each message.
// On the very first run no watermark exists yet: the current highest UID is
// stored and nothing is ingested, so a fresh deployment does not flood the
// review queue with the mailbox's entire history.
func (s *MailboxSource) Pull(ctx context.Context) (int, error) {
	client, err := imap.New(s.cfg.GetIMAPUsername(), s.cfg.GetIMAPPassword(), s.cfg.GetIMAPHost(), s.cfg.GetIMAPPort())
	if err != nil {
		return 0, fmt.Errorf("imap connect: %w", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.SelectFolder(s.cfg.GetIMAPFolder()); err != nil {
		return 0, fmt.Errorf("imap select folder %q: %w", s.cfg.GetIMAPFolder(), err)
	}

	uids, err := client.GetUIDs("ALL")
	if err != nil {
		return 0, fmt.Errorf("imap list uids: %w", err)
	}
	if len(uids) == 0 {
		return 0, nil
	}
	sort.Ints(uids)
	maxUID := uids[len(uids)-1]

	lastSeen, found, err := s.watermarks.GetWatermark(ctx, s.Name())
	if err != nil {
		return 0, fmt.Errorf("load mailbox watermark: %w", err)
	}
	if !found {
		if err := s.watermarks.SetWatermark(ctx, s.Name(), strconv.Itoa(maxUID)); err != nil {
			return 0, fmt.Errorf("store initial mailbox watermark: %w", err)
		}
		s.log.Info("mailbox watermark initialized", "source", s.Name(), "uid", maxUID)
		return 0, nil
	}

	lastUID, err := strconv.Atoi(lastSeen)
	if err != nil {
		return 0, fmt.Errorf("corrupt mailbox watermark %q: %w", lastSeen, err)
	}

	var newUIDs []int
	for _, uid := range uids {
		if uid > lastUID {
			newUIDs = append(newUIDs, uid)
		}
	}
	if len(newUIDs) == 0 {
		return 0, nil
	}

	emails, err := client.GetEmails(newUIDs...)
	if err != nil {
		return 0, fmt.Errorf("imap fetch emails: %w", err)
	}

	ingested := 0
	for _, email := range emails {
		req := s.toIngestRequest(email)
		resp, err := s.ingestor.Ingest(ctx, req)
		if err != nil {
			// Leave the watermark behind this message; the next pull retries.
			return ingested, fmt.Errorf("ingest mail uid %d: %w", email.UID, err)
		}
		if resp.Status == inboxservice.IngestCreated {
			ingested++
		}
	}

	if err := s.watermarks.SetWatermark(ctx, s.Name(), strconv.Itoa(maxUID)); err != nil {
		return ingested, fmt.Errorf("advance mailbox watermark: %w", err)
	}
	return ingested, nil
}

func (s *MailboxSource) toIngestRequest(email *imap.Email) inboxtransport.IngestEventRequest {
	sender := ""
	for address := range email.From {
		sender = address
		break
	}

	body := email.Text
	if body == "" {
		body = email.HTML
	}

	received := email.Received
	return inboxtransport.IngestEventRequest{
		ExternalID: fmt.Sprintf("%s:%d", s.Name(), email.UID),
		Kind:       string(inboxrepo.KindEmail),
		Subject:    email.Subject,
		Sender:     sender,
		Body:       body,
		ReceivedAt: &received,
		Metadata: map[string]any{
			"folder":    s.cfg.GetIMAPFolder(),
			"uid":       email.UID,
			"messageId": email.MessageID,
		},
	}
}
