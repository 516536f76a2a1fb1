package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"finassist/internal/embedding"
	"finassist/internal/llm"
	"finassist/internal/recommend"
	"finassist/internal/vectorstore"
	"finassist/pkg/logger"
)

// DefaultTopK is the number of context documents retrieved per question.
const DefaultTopK = 4

// recommendationMarker precedes the user id in questions that ask for
// personalized recommendations.
const recommendationMarker = "user id is"

const qaTemplate = `You are a helpful financial assistant specializing in transaction analysis.
Use the following pieces of context to answer the question at the end.
Only consider transactions that belong to the user ID mentioned in the question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.

Context: %s

Chat History: %s
Human: %s
Assistant:`

// Turn is one completed question/answer exchange.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Session is a conversational Q&A session over the financial index. Each
// submitted question is answered with retrieved context and the session's
// prior turns. A turn is recorded only after the model answers; a failure
// anywhere leaves the history exactly as it was.
type Session struct {
	embedder    embedding.Model
	store       vectorstore.Store
	model       llm.LLM
	recommender *recommend.Engine
	log         *logger.Logger
	topK        int

	// submitMu keeps at most one question in flight per session; mu guards
	// the history for concurrent readers.
	submitMu sync.Mutex
	mu       sync.Mutex
	history  []Turn
}

// NewSession creates a chat session. topK <= 0 falls back to DefaultTopK.
func NewSession(embedder embedding.Model, store vectorstore.Store, model llm.LLM, recommender *recommend.Engine, topK int, log *logger.Logger) *Session {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Session{
		embedder:    embedder,
		store:       store,
		model:       model,
		recommender: recommender,
		log:         log,
		topK:        topK,
	}
}

// Submit answers one question. Retrieval runs without a metadata filter so
// the model sees context across all record types; questions containing the
// "user id is <id>" marker together with the word "recommendations" also get
// a personalized recommendation block appended to the answer.
func (s *Session) Submit(ctx context.Context, question string) (string, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	contexts, err := s.QueryByText(ctx, question, s.topK)
	if err != nil {
		return "", err
	}

	prompt := s.buildPrompt(contexts, question)

	var recBlock string
	if userID, ok := recommendationRequest(question); ok {
		recs, err := s.recommender.Recommend(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("failed to build recommendations for user '%s': %w", userID, err)
		}
		recBlock = recommend.FormatBlock(recs)
	}

	answer, err := s.model.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	answer += recBlock

	s.mu.Lock()
	s.history = append(s.history, Turn{Question: question, Answer: answer})
	s.mu.Unlock()

	return answer, nil
}

// QueryByText embeds the text and returns the top-k unfiltered matches.
func (s *Session) QueryByText(ctx context.Context, text string, topK int) ([]vectorstore.Match, error) {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	matches, err := s.store.QueryByVector(ctx, vector, topK, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	return matches, nil
}

// History returns a copy of the recorded turns in order.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Reset discards the session's history.
func (s *Session) Reset() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

func (s *Session) buildPrompt(contexts []vectorstore.Match, question string) string {
	docs := make([]string, 0, len(contexts))
	for _, m := range contexts {
		docs = append(docs, m.Document)
	}

	s.mu.Lock()
	historyLines := make([]string, 0, len(s.history)*2)
	for _, turn := range s.history {
		historyLines = append(historyLines, "Human: "+turn.Question, "Assistant: "+turn.Answer)
	}
	s.mu.Unlock()

	return fmt.Sprintf(qaTemplate,
		strings.Join(docs, "\n\n"),
		strings.Join(historyLines, "\n"),
		question)
}

// recommendationRequest reports whether the question asks for personalized
// recommendations and, if so, the user id it names. Matching is a best-effort
// case-insensitive scan: the id is the first token after the marker phrase,
// and the word "recommendations" must appear somewhere in the question.
func recommendationRequest(question string) (string, bool) {
	lowered := strings.ToLower(question)
	idx := strings.Index(lowered, recommendationMarker)
	if idx < 0 || !strings.Contains(lowered, "recommendations") {
		return "", false
	}
	rest := strings.Fields(lowered[idx+len(recommendationMarker):])
	if len(rest) == 0 {
		return "", false
	}
	return strings.Trim(rest[0], ".,!?"), true
}
