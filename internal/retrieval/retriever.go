// Package retrieval implements the semantic diagnosis source: symptom
// queries are embedded and matched against a pgvector table of known
// diseases. The same store holds medical knowledge chunks consulted
// during final reasoning.
package retrieval

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/diagnosis"
	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/platform/icd"
)

const defaultTopK = 5

// Embedder produces the query vectors. Implemented by the agent client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever answers nearest-neighbour queries over the disease and
// knowledge tables. A nil database degrades every operation to an empty
// result, matching the no-index startup mode.
type Retriever struct {
	db       *sql.DB
	embedder Embedder
	icd      *icd.Client
	topK     int
	log      *zap.Logger
}

func New(db *sql.DB, embedder Embedder, icdClient *icd.Client, log *zap.Logger) *Retriever {
	return &Retriever{
		db:       db,
		embedder: embedder,
		icd:      icdClient,
		topK:     defaultTopK,
		log:      log,
	}
}

// Predict embeds the symptom list and returns the closest known diseases
// with cosine similarity as confidence.
func (r *Retriever) Predict(ctx context.Context, symptoms []string) ([]diagnosis.Prediction, error) {
	if r.db == nil || len(symptoms) == 0 {
		return nil, nil
	}

	query := "Symptoms: " + strings.Join(symptoms, ", ")
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed symptom query")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT disease, icd10, 1 - (embedding <=> $1::vector) AS score
		FROM disease_vectors
		ORDER BY embedding <=> $1::vector
		LIMIT $2`,
		vectorLiteral(vec), r.topK)
	if err != nil {
		return nil, errors.Wrap(err, "disease vector query failed")
	}
	defer rows.Close()

	var predictions []diagnosis.Prediction
	for rows.Next() {
		var p diagnosis.Prediction
		if err := rows.Scan(&p.Disease, &p.ICD10, &p.Confidence); err != nil {
			return nil, err
		}
		if p.ICD10 == "" || p.ICD10 == "UNKNOWN" {
			p.ICD10 = r.backfillICD(ctx, p.Disease)
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

func (r *Retriever) backfillICD(ctx context.Context, disease string) string {
	if r.icd == nil {
		return "Unknown"
	}
	code, err := r.icd.Lookup(ctx, disease)
	if err != nil {
		r.log.Warn("ICD backfill failed", zap.String("disease", disease), zap.Error(err))
		return "Unknown"
	}
	return code
}

// StoreKnowledge chunks documents and indexes them for reasoning-time
// retrieval.
func (r *Retriever) StoreKnowledge(ctx context.Context, source string, documents []string) error {
	if r.db == nil {
		return nil
	}
	for i, doc := range documents {
		for j, chunk := range ChunkText(doc, 300) {
			vec, err := r.embedder.Embed(ctx, chunk)
			if err != nil {
				return errors.Wrap(err, "failed to embed knowledge chunk")
			}
			_, err = r.db.ExecContext(ctx, `
				INSERT INTO knowledge_chunks (source, chunk_no, content, embedding)
				VALUES ($1, $2, $3, $4::vector)`,
				source+"_"+strconv.Itoa(i), j, chunk, vectorLiteral(vec))
			if err != nil {
				return errors.Wrap(err, "failed to store knowledge chunk")
			}
		}
	}
	return nil
}

// Search returns the k knowledge chunks closest to the query.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]string, error) {
	if r.db == nil {
		return nil, nil
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed knowledge query")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT content
		FROM knowledge_chunks
		ORDER BY embedding <=> $1::vector
		LIMIT $2`,
		vectorLiteral(vec), k)
	if err != nil {
		return nil, errors.Wrap(err, "knowledge query failed")
	}
	defer rows.Close()

	var chunks []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		chunks = append(chunks, content)
	}
	return chunks, rows.Err()
}

// Clear empties the knowledge store. Called on the session reset command.
func (r *Retriever) Clear(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `TRUNCATE knowledge_chunks`)
	return err
}

// ChunkText splits text into chunks of roughly chunkSize words on sentence
// boundaries.
func ChunkText(text string, chunkSize int) []string {
	sentences := splitSentences(text)

	var chunks []string
	var current []string
	length := 0
	for _, sentence := range sentences {
		words := len(strings.Fields(sentence))
		if length+words <= chunkSize || len(current) == 0 {
			current = append(current, sentence)
			length += words
			continue
		}
		chunks = append(chunks, strings.Join(current, " "))
		current = []string{sentence}
		length = words
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// vectorLiteral renders a pgvector input literal: [0.1,0.2,...].
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
