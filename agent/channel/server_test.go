package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/audit"
	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/pkg/metrics"
)

var metricsSeq atomic.Int64

func testMetrics() *metrics.Metrics {
	return metrics.New(fmt.Sprintf("channel_test_%d", metricsSeq.Add(1)), nil)
}

type fakeCycles struct {
	mu    sync.Mutex
	calls []string
	fn    func(threadID, text string) (contractx.CycleResult, error)
}

func (f *fakeCycles) HandleMessage(_ context.Context, threadID string, text string) (contractx.CycleResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, threadID+"|"+text)
	f.mu.Unlock()
	return f.fn(threadID, text)
}

type fakeSink struct {
	mu   sync.Mutex
	recs []contractx.LeadRecord
}

func (f *fakeSink) records() []contractx.LeadRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]contractx.LeadRecord(nil), f.recs...)
}

func (f *fakeSink) Capture(_ context.Context, rec contractx.LeadRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return nil
}

type sentMessage struct{ to, body string }

type fakeOutbound struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeOutbound) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeOutbound) Deliver(_ context.Context, to string, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	return f.err
}

type fakeAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (f *fakeAuditor) all() []audit.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]audit.Entry(nil), f.entries...)
}

func (f *fakeAuditor) Record(_ context.Context, e audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

type storeReader struct {
	*statex.MemoryStore
}

func (r storeReader) Conversation(ctx context.Context, threadID string) (*statex.ConversationState, error) {
	return r.Load(ctx, threadID)
}

type harness struct {
	srv      *httptest.Server
	cycles   *fakeCycles
	leads    *fakeSink
	outbound *fakeOutbound
	audit    *fakeAuditor
	store    *statex.MemoryStore
}

func newHarness(t *testing.T, fn func(threadID, text string) (contractx.CycleResult, error)) *harness {
	t.Helper()
	h := &harness{
		cycles:   &fakeCycles{fn: fn},
		leads:    &fakeSink{},
		outbound: &fakeOutbound{},
		audit:    &fakeAuditor{},
		store:    statex.NewMemoryStore(),
	}
	s, err := NewServer(h.cycles, Options{
		Leads:         h.leads,
		Audit:         h.audit,
		Outbound:      h.outbound,
		Metrics:       testMetrics(),
		Conversations: storeReader{h.store},
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	s.newThreadID = func() string { return "generated-thread" }
	h.srv = httptest.NewServer(s.Router())
	t.Cleanup(h.srv.Close)
	return h
}

func postJSON(t *testing.T, url string, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp, out
}

func TestChatAssignsThreadAndCleansReply(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(threadID, _ string) (contractx.CycleResult, error) {
		return contractx.CycleResult{
			ThreadID: threadID,
			Reply:    "**Pro**\tplan costs $79/month",
			Intent:   contractx.IntentProductInquiry,
		}, nil
	})

	resp, out := postJSON(t, h.srv.URL+"/chat", `{"query":"how much is pro?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out["thread_id"] != "generated-thread" {
		t.Fatalf("thread_id = %v", out["thread_id"])
	}
	if out["response"] != "Pro plan costs $79/month" {
		t.Fatalf("response = %q", out["response"])
	}
	if out["lead_captured"] != false {
		t.Fatalf("lead_captured = %v", out["lead_captured"])
	}
	if _, ok := out["lead_data"]; ok {
		t.Fatalf("lead_data should be omitted: %v", out)
	}
	if len(h.leads.records()) != 0 {
		t.Fatalf("unexpected lead capture: %+v", h.leads.records())
	}
}

func TestChatReportsCapturedLeadOnce(t *testing.T) {
	t.Parallel()

	lead := statex.NewLeadData("Jane Doe", "jane@example.com", "YouTube")
	var n atomic.Int64
	h := newHarness(t, func(threadID, _ string) (contractx.CycleResult, error) {
		first := n.Add(1) == 1
		return contractx.CycleResult{
			ThreadID:         threadID,
			Reply:            "Successfully signed-up! Welcome to AutoStream.",
			Intent:           contractx.IntentHighIntentLead,
			Lead:             lead,
			LeadCaptured:     true,
			LeadTransitioned: first,
		}, nil
	})

	for i := 0; i < 2; i++ {
		_, out := postJSON(t, h.srv.URL+"/chat", `{"query":"Jane Doe, jane@example.com, YouTube","thread_id":"t-1"}`)
		if out["thread_id"] != "t-1" || out["lead_captured"] != true {
			t.Fatalf("response = %v", out)
		}
		data, ok := out["lead_data"].(map[string]any)
		if !ok || data["name"] != "Jane Doe" || data["platform"] != "YouTube" {
			t.Fatalf("lead_data = %v", out["lead_data"])
		}
	}

	if len(h.leads.records()) != 1 {
		t.Fatalf("captures = %d, want 1", len(h.leads.records()))
	}
	rec := h.leads.records()[0]
	if rec.ThreadID != "t-1" || rec.Metadata["channel"] != "chat" || rec.CapturedAt.IsZero() {
		t.Fatalf("record = %+v", rec)
	}
}

func TestChatErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "bad json", body: `{`, status: http.StatusBadRequest, code: "invalid_json"},
		{name: "empty body", body: ``, status: http.StatusBadRequest, code: "invalid_json"},
		{
			name:   "validation",
			body:   `{"query":"  "}`,
			err:    fmt.Errorf("%w: message is empty", contractx.ErrValidation),
			status: http.StatusBadRequest,
			code:   "invalid_request",
		},
		{
			name:   "capability",
			body:   `{"query":"hi"}`,
			err:    fmt.Errorf("%w: classifier: timeout", contractx.ErrCapabilityUnavailable),
			status: http.StatusInternalServerError,
			code:   "cycle_failed",
		},
		{
			name:   "store",
			body:   `{"query":"hi"}`,
			err:    fmt.Errorf("%w: redis down", contractx.ErrStateStore),
			status: http.StatusInternalServerError,
			code:   "cycle_failed",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, func(string, string) (contractx.CycleResult, error) {
				return contractx.CycleResult{}, tc.err
			})
			resp, out := postJSON(t, h.srv.URL+"/chat", tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			if out["code"] != tc.code {
				t.Fatalf("code = %v, want %s", out["code"], tc.code)
			}
		})
	}
}

func postForm(t *testing.T, target string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := http.PostForm(target, form)
	if err != nil {
		t.Fatalf("post form: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp, string(raw)
}

func TestWebhookRunsCycleAndDeliversReply(t *testing.T) {
	t.Parallel()

	sender := "whatsapp:+15550001"
	lead := statex.NewLeadData("Jane", "jane@example.com", "Instagram")
	h := newHarness(t, func(threadID, text string) (contractx.CycleResult, error) {
		if threadID != sender || text != "Instagram" {
			t.Errorf("cycle(%q, %q)", threadID, text)
		}
		return contractx.CycleResult{
			ThreadID:         threadID,
			Reply:            "Successfully *signed-up*!\n\tWelcome to AutoStream.",
			Lead:             lead,
			LeadCaptured:     true,
			LeadTransitioned: true,
		}, nil
	})

	resp, body := postForm(t, h.srv.URL+"/webhook", url.Values{
		"Body": {" Instagram "},
		"From": {sender},
	})
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"status":"success"`) {
		t.Fatalf("response = %d %s", resp.StatusCode, body)
	}

	if len(h.outbound.messages()) != 1 {
		t.Fatalf("sent = %+v", h.outbound.messages())
	}
	if got := h.outbound.messages()[0]; got.to != sender || got.body != "Successfully  signed-up ! Welcome to AutoStream." {
		t.Fatalf("sent = %+v", got)
	}

	if len(h.audit.all()) != 2 {
		t.Fatalf("audit entries = %+v", h.audit.all())
	}
	in, out := h.audit.all()[0], h.audit.all()[1]
	if in.Thread != sender || in.Sender != audit.SenderUser || in.Message != "Instagram" {
		t.Fatalf("inbound entry = %+v", in)
	}
	if out.Sender != audit.SenderBot || !out.LeadCaptured || out.Details == nil {
		t.Fatalf("outbound entry = %+v", out)
	}

	if len(h.leads.records()) != 1 {
		t.Fatalf("captures = %+v", h.leads.records())
	}
	meta := h.leads.records()[0].Metadata
	if meta["sender_number"] != sender || meta["profile_name"] != "User" {
		t.Fatalf("metadata = %v", meta)
	}
}

func TestWebhookApologizesOnFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(string, string) (contractx.CycleResult, error) {
		return contractx.CycleResult{}, errors.New("model exploded")
	})
	resp, body := postForm(t, h.srv.URL+"/webhook", url.Values{
		"Body":        {"hello"},
		"From":        {"whatsapp:+15550002"},
		"ProfileName": {"Bob"},
	})
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "success") {
		t.Fatalf("response = %d %s", resp.StatusCode, body)
	}
	if len(h.outbound.messages()) != 1 || h.outbound.messages()[0].body != apologyReply {
		t.Fatalf("sent = %+v", h.outbound.messages())
	}
	if len(h.leads.records()) != 0 {
		t.Fatal("no lead expected on failure")
	}
}

func TestWebhookRequiresSender(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(string, string) (contractx.CycleResult, error) {
		t.Error("cycle must not run")
		return contractx.CycleResult{}, nil
	})
	resp, _ := postForm(t, h.srv.URL+"/webhook", url.Values{"Body": {"hi"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestHealthMetricsAndThread(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(threadID, _ string) (contractx.CycleResult, error) {
		return contractx.CycleResult{ThreadID: threadID, Reply: "hi", Intent: contractx.IntentGreeting}, nil
	})

	st := statex.NewConversationState("t-9", time.Now())
	if err := st.Append(statex.RoleUser, "hello", time.Now()); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := h.store.Save(context.Background(), st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	resp, err := http.Get(h.srv.URL + "/healthz")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %v %v", resp, err)
	}
	resp.Body.Close()

	postJSON(t, h.srv.URL+"/chat", `{"query":"hi","thread_id":"t-9"}`)

	resp, err = http.Get(h.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.Contains(raw, []byte(`intent="greeting",outcome="ok"`)) {
		t.Fatalf("metrics missing cycle sample:\n%s", raw)
	}

	resp, err = http.Get(h.srv.URL + "/v1/threads/t-9")
	if err != nil {
		t.Fatalf("get thread: %v", err)
	}
	var got statex.ConversationState
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode thread: %v", err)
	}
	resp.Body.Close()
	if got.ThreadID != "t-9" || len(got.Messages) != 1 || got.Version != 1 {
		t.Fatalf("thread = %+v", got)
	}

	resp, err = http.Get(h.srv.URL + "/v1/threads/missing")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status = %d", resp.StatusCode)
	}
}

type fakePublisher struct {
	destination string
	body        []byte
	forward     map[string]string
}

func (f *fakePublisher) Publish(_ context.Context, destination string, body []byte, forward map[string]string) (string, error) {
	f.destination, f.body, f.forward = destination, body, forward
	return "msg_1", nil
}

func TestQStashOutbound(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	out, err := NewQStashOutbound(pub, "https://hooks.example.com/send")
	if err != nil {
		t.Fatalf("NewQStashOutbound: %v", err)
	}
	if err := out.Deliver(context.Background(), "whatsapp:+1", "hello"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if pub.destination != "https://hooks.example.com/send" || pub.forward["To"] != "whatsapp:+1" {
		t.Fatalf("publish = %+v", pub)
	}
	if string(pub.body) != `{"to":"whatsapp:+1","body":"hello"}` {
		t.Fatalf("body = %s", pub.body)
	}
}
