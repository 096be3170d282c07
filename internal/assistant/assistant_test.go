package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medicheck-server/internal/logger"
)

type fakeGenerator struct {
	reply  string
	err    error
	system string
	prompt string
	calls  int
}

func (f *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.system = system
	f.prompt = prompt
	return f.reply, f.err
}

func TestReply(t *testing.T) {
	gen := &fakeGenerator{reply: "  Tap 'Check-In' and scan the QR code.  "}
	svc := NewService(gen, logger.Discard())

	got, err := svc.Reply(context.Background(), "  How do I check in?\n")
	require.NoError(t, err)

	assert.Equal(t, "Tap 'Check-In' and scan the QR code.", got)
	assert.Equal(t, "How do I check in?", gen.prompt)
	assert.Contains(t, gen.system, "medical appointment app")
}

func TestReply_EmptyAnswerFallsBack(t *testing.T) {
	svc := NewService(&fakeGenerator{reply: "   "}, logger.Discard())

	got, err := svc.Reply(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, Fallback, got)
}

func TestReply_BlankMessage(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewService(gen, logger.Discard())

	_, err := svc.Reply(context.Background(), " \t ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Zero(t, gen.calls)
}

func TestReply_GeneratorError(t *testing.T) {
	boom := errors.New("quota exhausted")
	svc := NewService(&fakeGenerator{err: boom}, logger.Discard())

	_, err := svc.Reply(context.Background(), "hello")
	assert.ErrorIs(t, err, boom)
}

func TestReply_Unavailable(t *testing.T) {
	svc := NewService(Unavailable{}, logger.Discard())

	_, err := svc.Reply(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), " ", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Bring "), genai.Text("your ID.")}},
		}},
	}
	assert.Equal(t, "Bring your ID.", responseText(resp))
}
