// Package adapter drives a LinkedIn people-search page: it extracts candidate
// profiles, sends connection invitations and advances pagination. The page is
// reached only through a Runtime of small DOM functions; selector fallbacks,
// polling and failure reasons are decided here.
package adapter

import (
	"context"
	"strings"
	"time"

	"outreach/internal/logging"
	"outreach/internal/operation"
	"outreach/internal/types"

	"github.com/PuerkitoBio/goquery"
)

// Reason codes reported by adapter actions.
const (
	ReasonMissingProfileID   = "missing_profile_id"
	ReasonProfileNotFound    = "profile_not_found"
	ReasonConnectNotFound    = "connect_not_found"
	ReasonModalNotFound      = "modal_not_found"
	ReasonNoteAreaNotFound   = "note_area_not_found"
	ReasonSendButtonNotFound = "send_button_not_found"
	ReasonSimulated          = "simulated"
	ReasonSent               = "sent"
	ReasonInviteFailed       = "invite_failed"

	ReasonNextNotFound   = "next_not_found"
	ReasonNextDisabled   = "next_disabled"
	ReasonNavigated      = "navigated"
	ReasonNextPageFailed = "next_page_failed"

	ReasonScrapeFailed = "scrape_failed"
)

// ScrapeResult is the outcome of Scrape.
type ScrapeResult struct {
	OK       bool            `json:"ok"`
	Profiles []types.Profile `json:"profiles"`
	Count    int             `json:"count"`
	Reason   string          `json:"reason,omitempty"`
}

// InviteRequest asks for one invitation.
type InviteRequest struct {
	ProfileID string
	Note      string
	Simulate  bool
}

// InviteResult is the outcome of SendInvite.
type InviteResult struct {
	OK        bool   `json:"ok"`
	Reason    string `json:"reason"`
	ProfileID string `json:"profileId,omitempty"`
}

// NextResult is the outcome of NextPage.
type NextResult struct {
	OK        bool   `json:"ok"`
	Reason    string `json:"reason"`
	Navigated bool   `json:"navigated"`
}

// Options tunes waits. Zero values take defaults.
type Options struct {
	WaitTimeout   time.Duration // modal and note field
	PromptTimeout time.Duration // "Add a note" / "Send without a note" prompt
	PollInterval  time.Duration
	RevealDelay   time.Duration // after revealing the note field
	SettleDelay   time.Duration // after clicking send
	Now           func() time.Time
}

// DefaultOptions returns the standard timings.
func DefaultOptions() Options {
	return Options{
		WaitTimeout:   6 * time.Second,
		PromptTimeout: 6 * time.Second,
		PollInterval:  100 * time.Millisecond,
		RevealDelay:   150 * time.Millisecond,
		SettleDelay:   300 * time.Millisecond,
		Now:           time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = d.WaitTimeout
	}
	if o.PromptTimeout <= 0 {
		o.PromptTimeout = d.PromptTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.RevealDelay < 0 {
		o.RevealDelay = 0
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// Adapter performs page actions through a Runtime.
type Adapter struct {
	rt   Runtime
	opts Options
}

// New returns an adapter over rt.
func New(rt Runtime, opts Options) *Adapter {
	return &Adapter{rt: rt, opts: opts.withDefaults()}
}

// Scrape extracts every candidate profile on the page, in DOM order, and
// makes sure each card carries its id marker.
func (a *Adapter) Scrape(ctx context.Context) ScrapeResult {
	timer := logging.StartTimer(logging.CategoryAdapter, "Scrape")
	defer timer.Stop()

	var snapshot string
	if err := callInto(ctx, a.rt, &snapshot, fnSnapshot); err != nil {
		logging.AdapterWarn("snapshot failed: %v", err)
		return ScrapeResult{Reason: ReasonScrapeFailed}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot))
	if err != nil {
		logging.AdapterWarn("parse snapshot: %v", err)
		return ScrapeResult{Reason: ReasonScrapeFailed}
	}

	strategy, found := extractProfiles(doc, a.opts.Now())
	found, err = a.stampIDs(ctx, found)
	if err != nil {
		logging.AdapterWarn("stamp ids failed: %v", err)
		return ScrapeResult{Reason: ReasonScrapeFailed}
	}
	found = dropDuplicateIDs(found)

	profiles := make([]types.Profile, 0, len(found))
	for _, e := range found {
		profiles = append(profiles, e.profile)
	}
	logging.Adapter("scraped %d profiles (strategy %q)", len(profiles), strategy)
	return ScrapeResult{OK: true, Profiles: profiles, Count: len(profiles)}
}

type stampAssignment struct {
	Path string `json:"path"`
	ID   string `json:"id"`
	Text string `json:"text"`
}

// stampIDs writes fresh ids onto unmarked cards. The page only touches an
// element whose collapsed text still equals the snapshot card's, and answers
// with the id that element carries. Cards the page could not confirm are
// dropped.
func (a *Adapter) stampIDs(ctx context.Context, found []extracted) ([]extracted, error) {
	var assignments []stampAssignment
	var index []int
	for i, e := range found {
		if e.marked {
			continue
		}
		assignments = append(assignments, stampAssignment{Path: e.path, ID: e.profile.ProfileID, Text: e.fingerprint})
		index = append(index, i)
	}
	if len(assignments) == 0 {
		return found, nil
	}

	var ids []string
	if err := callInto(ctx, a.rt, &ids, fnStamp, assignments); err != nil {
		return nil, err
	}
	drop := make(map[int]bool)
	for k, i := range index {
		if k >= len(ids) || ids[k] == "" {
			logging.AdapterWarn("card %d (%s) changed or moved before stamping, skipped", i, found[i].profile.Name)
			drop[i] = true
			continue
		}
		found[i].profile.ProfileID = ids[k]
	}
	if len(drop) == 0 {
		return found, nil
	}
	kept := make([]extracted, 0, len(found)-len(drop))
	for i, e := range found {
		if !drop[i] {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

// dropDuplicateIDs removes every card whose id is shared with another card;
// an ambiguous id cannot be acted on safely.
func dropDuplicateIDs(found []extracted) []extracted {
	counts := make(map[string]int, len(found))
	for _, e := range found {
		counts[e.profile.ProfileID]++
	}
	kept := make([]extracted, 0, len(found))
	for _, e := range found {
		if counts[e.profile.ProfileID] > 1 {
			logging.AdapterWarn("id %s shared by %d cards, skipping %s", e.profile.ProfileID, counts[e.profile.ProfileID], e.profile.Name)
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// SendInvite opens the connect flow for a profile, optionally adds a note,
// and submits unless req.Simulate is set.
func (a *Adapter) SendInvite(ctx context.Context, req InviteRequest) InviteResult {
	res, err := a.sendInvite(ctx, req)
	if err != nil {
		logging.AdapterWarn("invite %s failed: %v", req.ProfileID, err)
		return InviteResult{Reason: ReasonInviteFailed, ProfileID: req.ProfileID}
	}
	return res
}

func (a *Adapter) sendInvite(ctx context.Context, req InviteRequest) (InviteResult, error) {
	id := strings.TrimSpace(req.ProfileID)
	if id == "" {
		return InviteResult{Reason: ReasonMissingProfileID}, nil
	}
	fail := func(reason string) (InviteResult, error) {
		return InviteResult{Reason: reason, ProfileID: id}, nil
	}

	exists, err := callBool(ctx, a.rt, fnCardExists, id)
	if err != nil {
		return InviteResult{}, err
	}
	if !exists {
		return fail(ReasonProfileNotFound)
	}
	clicked, err := callBool(ctx, a.rt, fnClickConnect, id)
	if err != nil {
		return InviteResult{}, err
	}
	if !clicked {
		return fail(ReasonConnectNotFound)
	}

	note := operation.TruncateNote(strings.TrimSpace(req.Note))
	chosen, err := a.resolvePrompt(ctx, note != "", req.Simulate)
	if err != nil {
		return InviteResult{}, err
	}
	if chosen == promptSendWithout {
		// the prompt submits the invitation itself; a modal only follows on
		// layouts that still ask for confirmation
		open, err := callBool(ctx, a.rt, fnModalPresent, modalSelector)
		if err != nil {
			return InviteResult{}, err
		}
		if !open {
			return a.settleSent(ctx, id, false)
		}
	}

	modal, err := a.poll(ctx, a.opts.WaitTimeout, func() (bool, error) {
		return callBool(ctx, a.rt, fnModalPresent, modalSelector)
	})
	if err != nil {
		return InviteResult{}, err
	}
	if !modal {
		return fail(ReasonModalNotFound)
	}

	if note != "" {
		revealed, err := callBool(ctx, a.rt, fnModalClick, modalSelector, addNoteSelectors)
		if err != nil {
			return InviteResult{}, err
		}
		if revealed {
			if err := sleep(ctx, a.opts.RevealDelay); err != nil {
				return InviteResult{}, err
			}
		}
		filled, err := a.poll(ctx, a.opts.WaitTimeout, func() (bool, error) {
			return callBool(ctx, a.rt, fnModalFill, modalSelector, noteAreaSelectors, note)
		})
		if err != nil {
			return InviteResult{}, err
		}
		if !filled {
			return fail(ReasonNoteAreaNotFound)
		}
	}

	if req.Simulate {
		logging.Adapter("simulated invite for %s (note=%v)", id, note != "")
		return InviteResult{OK: true, Reason: ReasonSimulated, ProfileID: id}, nil
	}

	sent, err := callBool(ctx, a.rt, fnModalClick, modalSelector, sendSelectors)
	if err != nil {
		return InviteResult{}, err
	}
	if !sent {
		if sent, err = callBool(ctx, a.rt, fnModalClickText, modalSelector, sendText); err != nil {
			return InviteResult{}, err
		}
	}
	if !sent {
		return fail(ReasonSendButtonNotFound)
	}
	return a.settleSent(ctx, id, note != "")
}

func (a *Adapter) settleSent(ctx context.Context, id string, withNote bool) (InviteResult, error) {
	if err := sleep(ctx, a.opts.SettleDelay); err != nil {
		return InviteResult{}, err
	}
	logging.Adapter("invite sent for %s (note=%v)", id, withNote)
	return InviteResult{OK: true, Reason: ReasonSent, ProfileID: id}, nil
}

type promptQuery struct {
	Scope      string   `json:"scope"`
	Layer      string   `json:"layer"`
	Label      string   `json:"label"`
	Containers []string `json:"containers"`
}

// resolvePrompt answers the "Add a note" / "Send without a note" prompt that
// may follow the connect click. Each attempt searches the embedded shadow
// root and the document, each layered as attribute match, likely containers,
// then any button. A prompt that never resolves is not an error.
// Simulated runs never pick "Send without a note" since it submits at once.
// The clicked label is returned, or "" when nothing was clicked.
func (a *Adapter) resolvePrompt(ctx context.Context, withNote, simulate bool) (string, error) {
	labels := []string{promptSendWithout, promptAddNote}
	if withNote || simulate {
		labels = []string{promptAddNote}
	}

	var chosen string
	ok, err := a.poll(ctx, a.opts.PromptTimeout, func() (bool, error) {
		for _, label := range labels {
			for _, scope := range promptScopes {
				for _, layer := range promptLayers {
					q := promptQuery{Scope: scope, Layer: layer, Label: label, Containers: promptContainers}
					clicked, err := callBool(ctx, a.rt, fnClickPrompt, q)
					if err != nil {
						return false, err
					}
					if clicked {
						chosen = label
						return true, nil
					}
				}
			}
		}
		return false, nil
	})
	if err != nil {
		return "", err
	}
	if !ok {
		logging.AdapterWarn("invite prompt not resolved within %v, continuing", a.opts.PromptTimeout)
		return "", nil
	}
	logging.AdapterDebug("invite prompt resolved with %q", chosen)
	return chosen, nil
}

type controlState struct {
	Found    bool `json:"found"`
	Disabled bool `json:"disabled"`
}

// NextPage clicks the pagination "next" control. It does not wait for the
// new page; callers settle before scraping again.
func (a *Adapter) NextPage(ctx context.Context) NextResult {
	res, err := a.nextPage(ctx)
	if err != nil {
		logging.AdapterWarn("next page failed: %v", err)
		return NextResult{Reason: ReasonNextPageFailed}
	}
	return res
}

func (a *Adapter) nextPage(ctx context.Context) (NextResult, error) {
	var state controlState
	target := ""
	for _, sel := range nextSelectors {
		if err := callInto(ctx, a.rt, &state, fnInspect, sel); err != nil {
			return NextResult{}, err
		}
		if state.Found {
			target = sel
			break
		}
	}
	if target == "" {
		if err := callInto(ctx, a.rt, &state, fnInspectText, nextTextPrefix); err != nil {
			return NextResult{}, err
		}
	}
	if !state.Found {
		return NextResult{Reason: ReasonNextNotFound}, nil
	}
	if state.Disabled {
		return NextResult{Reason: ReasonNextDisabled}, nil
	}

	var clicked bool
	var err error
	if target != "" {
		clicked, err = callBool(ctx, a.rt, fnClick, target)
	} else {
		clicked, err = callBool(ctx, a.rt, fnClickTextPrefix, nextTextPrefix)
	}
	if err != nil {
		return NextResult{}, err
	}
	if !clicked {
		return NextResult{Reason: ReasonNextNotFound}, nil
	}
	logging.Adapter("advanced to next results page")
	return NextResult{OK: true, Reason: ReasonNavigated, Navigated: true}, nil
}

// poll calls check until it reports true, returns an error, or timeout
// elapses. The first check runs immediately.
func (a *Adapter) poll(ctx context.Context, timeout time.Duration, check func() (bool, error)) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := check()
		if err != nil || ok {
			return ok, err
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		if err := sleep(ctx, a.opts.PollInterval); err != nil {
			return false, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
