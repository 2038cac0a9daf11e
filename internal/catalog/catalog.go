// Package catalog holds the in-memory message templates and the triggers
// that map inbound chat signals onto them.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	PlainText  Kind = "plain_text"
	ButtonMenu Kind = "button_menu"
	ListMenu   Kind = "list_menu"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type TriggerKind string

const (
	KeywordSet TriggerKind = "keyword_set"
	ButtonID   TriggerKind = "button_id"
	ListRowID  TriggerKind = "list_row_id"
)

type Action string

const (
	SendTemplate        Action = "send_template"
	StartExternalFlow   Action = "start_external_flow"
	MarkArrived         Action = "mark_arrived"
	MarkArrivedSelected Action = "mark_arrived_selected"
)

type SubjectKind string

const (
	SubjectDoctor  SubjectKind = "doctor"
	SubjectPatient SubjectKind = "patient"
	SubjectLab     SubjectKind = "lab"
	SubjectBooking SubjectKind = "booking"
)

type Button struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	TriggerID  string `json:"triggerId,omitempty"`
	NextAction Action `json:"nextAction,omitempty"`
	TargetID   string `json:"targetId,omitempty"`
}

type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	TriggerID   string `json:"triggerId,omitempty"`
	NextAction  Action `json:"nextAction,omitempty"`
	TargetID    string `json:"targetId,omitempty"`
}

type Section struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

// Template is one outbound message definition.
type Template struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Kind       Kind       `json:"kind"`
	Status     string     `json:"status"`
	Header     string     `json:"header,omitempty"`
	Body       string     `json:"body"`
	Footer     string     `json:"footer,omitempty"`
	ButtonText string     `json:"buttonText,omitempty"`
	Buttons    []Button   `json:"buttons,omitempty"`
	Sections   []Section  `json:"sections,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// Clone returns a deep copy so callers can personalize a template without
// touching the catalog entry.
func (t *Template) Clone() *Template {
	c := *t
	c.Buttons = append([]Button(nil), t.Buttons...)
	c.Sections = make([]Section, len(t.Sections))
	for i, s := range t.Sections {
		c.Sections[i] = Section{Title: s.Title, Rows: append([]Row(nil), s.Rows...)}
	}
	if t.Sections == nil {
		c.Sections = nil
	}
	return &c
}

// Subject ties a trigger to the record it was generated from.
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

// Trigger maps an inbound signal to an action. Keyword triggers use Keywords,
// button and list triggers use Value.
type Trigger struct {
	ID        string      `json:"id"`
	Kind      TriggerKind `json:"kind"`
	Value     string      `json:"value,omitempty"`
	Keywords  []string    `json:"keywords,omitempty"`
	Action    Action      `json:"action"`
	TargetID  string      `json:"targetId,omitempty"`
	Subject   *Subject    `json:"subject,omitempty"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
}

func (t *Trigger) expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// Catalog is safe for concurrent use. Keyword triggers are evaluated in
// declaration order; button and list triggers newest first.
type Catalog struct {
	mu          sync.RWMutex
	templates   map[string]*Template
	order       []string
	keywords    []*Trigger
	interactive []*Trigger
	ttl         time.Duration
	now         func() time.Time
}

// New returns an empty catalog whose personalized entries live for ttl.
func New(ttl time.Duration) *Catalog {
	return &Catalog{
		templates: make(map[string]*Template),
		ttl:       ttl,
		now:       time.Now,
	}
}

// NewSeeded returns a catalog loaded with the hospital templates and triggers.
func NewSeeded(ttl time.Duration) *Catalog {
	c := New(ttl)
	for _, t := range seedTemplates() {
		c.PutTemplate(t)
	}
	for _, tr := range seedTriggers() {
		c.PutTrigger(tr)
	}
	return c
}

func (c *Catalog) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// PutTemplate stores t, replacing any template with the same id.
func (c *Catalog) PutTemplate(t *Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putTemplateLocked(t)
}

func (c *Catalog) putTemplateLocked(t *Template) {
	if _, ok := c.templates[t.ID]; !ok {
		c.order = append(c.order, t.ID)
	}
	c.templates[t.ID] = t
}

// PutTrigger registers tr. Interactive triggers go to the head of the
// evaluation order so the newest registration wins.
func (c *Catalog) PutTrigger(tr *Trigger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putTriggerLocked(tr)
}

func (c *Catalog) putTriggerLocked(tr *Trigger) {
	if tr.Kind == KeywordSet {
		c.keywords = append(c.keywords, tr)
		return
	}
	c.interactive = append([]*Trigger{tr}, c.interactive...)
}

// RegisterEphemeral stores a personalized template and its triggers under one
// lock. Both expire after the catalog TTL. Either argument may be nil.
func (c *Catalog) RegisterEphemeral(t *Template, triggers ...*Trigger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	expires := c.now().Add(c.ttl)
	if t != nil {
		t.ExpiresAt = &expires
		c.putTemplateLocked(t)
	}
	for _, tr := range triggers {
		tr.ExpiresAt = &expires
		c.putTriggerLocked(tr)
	}
}

// Template returns a copy of the template with the given id.
func (c *Catalog) Template(id string) (*Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[id]
	if !ok || (t.ExpiresAt != nil && !c.now().Before(*t.ExpiresAt)) {
		return nil, false
	}
	return t.Clone(), true
}

// Published lists published templates in registration order.
func (c *Catalog) Published() []*Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Template, 0, len(c.order))
	for _, id := range c.order {
		if t := c.templates[id]; t.Status == StatusPublished && t.ExpiresAt == nil {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Triggers lists every live trigger, keyword triggers first.
func (c *Catalog) Triggers() []Trigger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	out := make([]Trigger, 0, len(c.keywords)+len(c.interactive))
	for _, list := range [][]*Trigger{c.keywords, c.interactive} {
		for _, tr := range list {
			if !tr.expired(now) {
				out = append(out, *tr)
			}
		}
	}
	return out
}

// HasTrigger reports whether a live trigger of kind already listens for value.
func (c *Catalog) HasTrigger(kind TriggerKind, value string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	for _, tr := range c.interactive {
		if tr.Kind == kind && tr.Value == value && !tr.expired(now) {
			return true
		}
	}
	return false
}

// AddTemplate registers a template supplied over the API under a minted id.
func (c *Catalog) AddTemplate(t Template) (*Template, error) {
	if strings.TrimSpace(t.Body) == "" {
		return nil, fmt.Errorf("template body is required")
	}
	switch t.Kind {
	case PlainText, ButtonMenu, ListMenu:
	default:
		return nil, fmt.Errorf("unsupported template kind: %s", t.Kind)
	}
	if t.Status == "" {
		t.Status = StatusPublished
	}
	t.ID = NewTemplateID(c.now())
	t.ExpiresAt = nil
	stored := t.Clone()
	c.PutTemplate(stored)
	return stored.Clone(), nil
}

// AddTrigger registers a trigger supplied over the API under a minted id.
func (c *Catalog) AddTrigger(tr Trigger) (*Trigger, error) {
	switch tr.Kind {
	case KeywordSet:
		if len(tr.Keywords) == 0 {
			return nil, fmt.Errorf("keyword trigger needs keywords")
		}
	case ButtonID, ListRowID:
		if tr.Value == "" {
			return nil, fmt.Errorf("%s trigger needs a value", tr.Kind)
		}
	default:
		return nil, fmt.Errorf("unsupported trigger kind: %s", tr.Kind)
	}
	if tr.Action == "" {
		tr.Action = SendTemplate
	}
	tr.ID = "trigger_" + mintSuffix(c.now())
	tr.ExpiresAt = nil
	stored := tr
	c.PutTrigger(&stored)
	return &tr, nil
}

// Prune drops expired personalized entries and reports how many went.
func (c *Catalog) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0

	order := c.order[:0]
	for _, id := range c.order {
		t := c.templates[id]
		if t.ExpiresAt != nil && !now.Before(*t.ExpiresAt) {
			delete(c.templates, id)
			removed++
			continue
		}
		order = append(order, id)
	}
	c.order = order

	live := c.interactive[:0]
	for _, tr := range c.interactive {
		if tr.expired(now) {
			removed++
			continue
		}
		live = append(live, tr)
	}
	c.interactive = live
	return removed
}

// RunJanitor prunes on every tick until ctx is cancelled.
func (c *Catalog) RunJanitor(ctx context.Context, every time.Duration, onPrune func(int)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Prune(); n > 0 && onPrune != nil {
				onPrune(n)
			}
		}
	}
}

// NewTemplateID mints msg_<unixmillis>_<random>.
func NewTemplateID(now time.Time) string {
	return "msg_" + mintSuffix(now)
}

func mintSuffix(now time.Time) string {
	return fmt.Sprintf("%d_%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
