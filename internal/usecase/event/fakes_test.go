package event

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/answer-bridge/internal/domain/errors"
)

const (
	ownID    = "UBOT"
	otherBot = "UOTHERBOT"
	human    = "UHUMAN"
)

type fakePlatform struct {
	mu sync.Mutex

	selfID     string
	selfErr    error
	history    []entity.ThreadMessage
	historyErr error
	profiles   map[string]*entity.UserProfile

	historyCalls int
	posted       []*entity.OutboundMessage
	deleted      []string
	postErr      error
	nextTS       int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		selfID: ownID,
		profiles: map[string]*entity.UserProfile{
			ownID:    {ID: ownID, IsBot: true},
			otherBot: {ID: otherBot, IsBot: true},
			human:    {ID: human},
		},
	}
}

func (f *fakePlatform) SelfUserID(context.Context) (string, error) {
	return f.selfID, f.selfErr
}

func (f *fakePlatform) ThreadHistory(context.Context, string, string) ([]entity.ThreadMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	return f.history, f.historyErr
}

func (f *fakePlatform) UserProfile(_ context.Context, userID string) (*entity.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, errors.New("user_not_found")
	}
	return p, nil
}

func (f *fakePlatform) PostMessage(_ context.Context, msg *entity.OutboundMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return "", f.postErr
	}
	f.nextTS++
	f.posted = append(f.posted, msg)
	return "9000." + strconv.Itoa(f.nextTS), nil
}

func (f *fakePlatform) DeleteMessage(_ context.Context, _ string, ts string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ts)
	return nil
}

func (f *fakePlatform) DownloadFile(context.Context, string, io.Writer) error {
	return nil
}

func (f *fakePlatform) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.posted))
	for _, m := range f.posted {
		out = append(out, m.Text)
	}
	return out
}

type staticResolver struct {
	bot *Bot
}

func (r staticResolver) Resolve(_ context.Context, key string) (*Bot, error) {
	if r.bot == nil || key != r.bot.Identity.RoutingKey {
		return nil, domainerrors.ErrBotNotFound
	}
	return r.bot, nil
}

// fakeVerifier accepts only the signature "v0=good".
type fakeVerifier struct{}

func (fakeVerifier) Verify(_, signature string, _ []byte, _ string) error {
	if signature != "v0=good" {
		return errors.New("signature mismatch")
	}
	return nil
}

type mapLedger struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newMapLedger() *mapLedger {
	return &mapLedger{ids: make(map[string]bool)}
}

func (l *mapLedger) Seen(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids[id]
}

func (l *mapLedger) TryAdmit(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ids[id] {
		return false
	}
	l.ids[id] = true
	return true
}

type fakeRelay struct {
	handles []string
	calls   int
	during  func()
}

func (r *fakeRelay) Relay(_ context.Context, _ FileDownloader, files []entity.AttachedFile) []entity.RelayedFile {
	r.calls++
	if r.during != nil {
		hook := r.during
		r.during = nil
		hook()
	}
	out := make([]entity.RelayedFile, 0, len(r.handles))
	for i, h := range r.handles {
		name := ""
		if i < len(files) {
			name = files[i].Name
		}
		out = append(out, entity.RelayedFile{OriginalName: name, MimeType: entity.ClassifyMime(name), Handle: h})
	}
	return out
}

type fakeAnswers struct {
	mu       sync.Mutex
	result   *AnswerResult
	err      error
	requests []AnswerRequest
}

func (a *fakeAnswers) Invoke(_ context.Context, req AnswerRequest) (*AnswerResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

type fakeRenderer struct {
	calls int
}

func (r *fakeRenderer) Render(_ context.Context, answer string) (string, []entity.PresentationBlock) {
	r.calls++
	return answer, []entity.PresentationBlock{{Kind: entity.BlockText, Text: answer}}
}

func nowHeader() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}
