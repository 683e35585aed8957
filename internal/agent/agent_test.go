package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"SeiChat-Agent/internal/intent"
	"SeiChat-Agent/internal/llm"
)

const wallet = "0xabcdef0123456789abcdef0123456789abcdef01"

type stubDelegate struct {
	result intent.Result
	calls  int
	panics bool
}

func (s *stubDelegate) Forward(context.Context, intent.Message) intent.Result {
	s.calls++
	if s.panics {
		panic("plugin crashed")
	}
	return s.result
}

func completer(reply string, err error, calls *int) llm.Completer {
	return llm.CompleterFunc(func(_ context.Context, system, _ string) (string, error) {
		if calls != nil {
			*calls++
		}
		if system != SystemPrompt {
			return "", errors.New("unexpected system prompt")
		}
		return reply, err
	})
}

func resolve(ag *Agent, text string) (intent.Result, string) {
	return ag.ResolveStage(context.Background(), intent.Message{Text: text, SenderID: "u1"})
}

func TestResolveEmptyText(t *testing.T) {
	res, stage := resolve(New(), "   ")
	if !res.IsNone() || stage != StageEmpty {
		t.Fatalf("expected none for empty text, got %+v (%s)", res, stage)
	}
}

func TestResolveGreetings(t *testing.T) {
	var calls int
	ag := New(WithCompleter(completer("llm", nil, &calls)))
	for _, text := range []string{"hi", "Hello there", "hey!"} {
		res, stage := resolve(ag, text)
		if res.Kind != intent.KindReply || stage != StageSmallTalk {
			t.Fatalf("%q: expected small talk reply, got %+v (%s)", text, res, stage)
		}
		if !strings.HasPrefix(res.Text, intent.GreetingMarker) {
			t.Fatalf("%q: reply missing greeting marker: %q", text, res.Text)
		}
	}
	if calls != 0 {
		t.Fatalf("completer must not be called for small talk")
	}
}

func TestResolveSendPattern(t *testing.T) {
	res, stage := resolve(New(), "send 1.5 SEI to "+strings.ToUpper(wallet[:2])+wallet[2:])
	want := intent.New(intent.CommandSendToken, wallet, "1.5")
	if res.Kind != intent.KindIntent || !res.Intent.Equal(want) || stage != StagePattern {
		t.Fatalf("unexpected result %+v (%s)", res, stage)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	ag := New(WithCompleter(completer("SEI is fast.", nil, nil)))
	for _, text := range []string{"price of sei", "tell me about sei", "thanks!"} {
		first, _ := resolve(ag, text)
		second, _ := resolve(ag, text)
		if !first.Equal(second) {
			t.Fatalf("%q: results differ: %+v vs %+v", text, first, second)
		}
	}
}

func TestResolveCompleterFailureFallsBack(t *testing.T) {
	ag := New(WithCompleter(completer("", errors.New("network down"), nil)))
	res, stage := resolve(ag, "tell me a story about validators")
	if res.Text != FallbackReply || stage != StageFallback {
		t.Fatalf("expected terminal fallback, got %+v (%s)", res, stage)
	}

	ag = New(WithCompleter(completer("   ", nil, nil)))
	if res, _ := resolve(ag, "tell me a story"); res.Text != FallbackReply {
		t.Fatalf("empty completion must fall back, got %+v", res)
	}

	panicking := llm.CompleterFunc(func(context.Context, string, string) (string, error) { panic("boom") })
	if res, _ := resolve(New(WithCompleter(panicking)), "tell me a story"); res.Text != FallbackReply {
		t.Fatalf("panicking completer must fall back, got %+v", res)
	}
}

func TestResolveCompleterReply(t *testing.T) {
	res, stage := resolve(New(WithCompleter(completer("  SEI is fast.  ", nil, nil))), "what is sei")
	if res.Text != "SEI is fast." || stage != StageCompleter {
		t.Fatalf("unexpected result %+v (%s)", res, stage)
	}
}

func TestResolveWithoutCompleter(t *testing.T) {
	res, _ := resolve(New(), "what is sei")
	if res.Text != FallbackReply {
		t.Fatalf("expected fallback without completer, got %+v", res)
	}
}

func TestResolveDelegateShortCircuits(t *testing.T) {
	var calls int
	d := &stubDelegate{result: intent.Reply("handled by plugin")}
	ag := New(WithDelegate(d), WithCompleter(completer("llm", nil, &calls)))

	res, stage := resolve(ag, "price of sei")
	if res.Text != "handled by plugin" || stage != StageDelegate {
		t.Fatalf("delegate reply must win, got %+v (%s)", res, stage)
	}
	if calls != 0 {
		t.Fatalf("later stages must not run after delegate result")
	}

	d.result = intent.FromIntent(intent.New(intent.CommandBalance))
	if res, _ := resolve(ag, "anything"); res.Kind != intent.KindIntent {
		t.Fatalf("delegate intent must win, got %+v", res)
	}
}

func TestResolveDelegateUnhandledContinues(t *testing.T) {
	d := &stubDelegate{result: intent.None()}
	ag := New(WithDelegate(d))

	res, stage := resolve(ag, "price of sei")
	if stage != StagePattern || !res.Intent.Equal(intent.New(intent.CommandPrice, "SEI")) {
		t.Fatalf("unexpected result %+v (%s)", res, stage)
	}

	if res, _ := resolve(ag, "hello"); res.Kind != intent.KindReply || d.calls != 1 {
		t.Fatalf("small talk must run before the delegate")
	}
}

func TestResolveDelegatePanicBecomesReply(t *testing.T) {
	ag := New(WithDelegate(&stubDelegate{panics: true}))
	res, stage := resolve(ag, "price of sei")
	if stage != StageDelegate || !strings.HasPrefix(res.Text, intent.ErrorMarker) {
		t.Fatalf("expected error reply, got %+v (%s)", res, stage)
	}
}
