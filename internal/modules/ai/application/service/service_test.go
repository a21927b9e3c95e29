package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"MarketMind/internal/modules/ai/application/dto/request"
	"MarketMind/internal/modules/ai/application/dto/respond"
	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/internal/modules/ai/infrastructure/chunking"
	aiembedding "MarketMind/internal/modules/ai/infrastructure/embedding"
	"MarketMind/internal/modules/ai/infrastructure/mq"
	"MarketMind/internal/modules/ai/infrastructure/pipeline"
	"MarketMind/internal/modules/ai/infrastructure/plugins"
	"MarketMind/internal/modules/ai/infrastructure/vectordb"
	"MarketMind/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 32

type ragFixture struct {
	store    *vectordb.MemoryStore
	ingest   *pipeline.IngestPipeline
	retrieve *pipeline.RetrievePipeline
}

func newRAGFixture(t *testing.T) *ragFixture {
	t.Helper()
	embedder := aiembedding.NewHashEmbedder(testDim)
	store := vectordb.NewMemoryStore(testDim)
	idx, err := vectordb.NewEinoIndexer(store)
	require.NoError(t, err)
	ing, err := pipeline.NewIngestPipeline(embedder, idx, testDim)
	require.NoError(t, err)
	ret, err := pipeline.NewRetrievePipeline(store, embedder, pipeline.RetrieveOptions{})
	require.NoError(t, err)
	return &ragFixture{store: store, ingest: ing, retrieve: ret}
}

func acmeFields() map[string]string {
	return map[string]string{
		rag.KindCompanyName:        "Acme",
		rag.KindProductDescription: "Rocket powered roller skates",
		rag.KindTargetAudience:     "Desert dwelling coyotes",
		rag.KindToneOfVoice:        "Playful",
	}
}

type fakeCompleter struct {
	mu    sync.Mutex
	fn    func(req *plugins.PluginRequest) (*plugins.PluginResponse, error)
	calls []plugins.PluginRequest
}

func (c *fakeCompleter) Execute(ctx context.Context, req *plugins.PluginRequest) (*plugins.PluginResponse, error) {
	c.mu.Lock()
	c.calls = append(c.calls, *req)
	c.mu.Unlock()
	return c.fn(req)
}

func (c *fakeCompleter) callsOf(serviceType string) []plugins.PluginRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []plugins.PluginRequest
	for _, r := range c.calls {
		if r.ServiceType == serviceType {
			out = append(out, r)
		}
	}
	return out
}

type ingestObs struct {
	stored, skipped, failed int
}

func (o *ingestObs) ObserveIngest(stored, skipped, failed int, elapsed time.Duration) {
	o.stored += stored
	o.skipped += skipped
	o.failed += failed
}

type retrieveObs struct {
	calls, empty int
}

func (o *retrieveObs) ObserveRetrieve(empty bool, err error, elapsed time.Duration) {
	o.calls++
	if empty {
		o.empty++
	}
}

func TestIngestServiceStoresNonEmptyFields(t *testing.T) {
	f := newRAGFixture(t)
	obs := &ingestObs{}
	svc := NewIngestService(f.ingest, chunking.NewNoteSplitter(200, 20), f.store, obs)

	fields := acmeFields()
	fields[rag.KindToneOfVoice] = "  "
	res, err := svc.Ingest(context.Background(), request.RAGIngestRequest{Fields: fields}, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stored)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	assert.Len(t, res.Fields, 4)
	assert.Equal(t, 3, f.store.Len())
	assert.Equal(t, 3, obs.stored)
	assert.Equal(t, 1, obs.skipped)
}

func TestIngestServiceValidation(t *testing.T) {
	f := newRAGFixture(t)
	svc := NewIngestService(f.ingest, chunking.NewNoteSplitter(200, 20), f.store, nil)

	_, err := svc.Ingest(context.Background(), request.RAGIngestRequest{Fields: acmeFields()}, 0)
	assert.ErrorIs(t, err, xerr.ErrUnauthorized)

	_, err = svc.Ingest(context.Background(), request.RAGIngestRequest{}, 7)
	assert.ErrorIs(t, err, xerr.ErrParam)

	_, err = svc.IngestNotes(context.Background(), request.RAGNotesRequest{Text: "   "}, 7)
	assert.ErrorIs(t, err, xerr.ErrParam)
}

func TestIngestNotesWritesNoteRecords(t *testing.T) {
	f := newRAGFixture(t)
	svc := NewIngestService(f.ingest, chunking.NewNoteSplitter(200, 20), f.store, nil)

	res, err := svc.IngestNotes(context.Background(), request.RAGNotesRequest{
		Text:     "Coyotes prefer morning deliveries.",
		Metadata: map[string]any{"url": "https://example.com"},
	}, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)

	hits, err := f.store.Scan(context.Background(), repository.Filter{OwnerID: 7, KindsIn: []string{rag.KindNote}}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "note", hits[0].Metadata["source"])
	assert.Equal(t, "https://example.com", hits[0].Metadata["url"])
}

func TestDeleteRecords(t *testing.T) {
	f := newRAGFixture(t)
	svc := NewIngestService(f.ingest, chunking.NewNoteSplitter(200, 20), f.store, nil)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, request.RAGIngestRequest{Fields: acmeFields()}, 7)
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, request.RAGIngestRequest{Fields: acmeFields()}, 8)
	require.NoError(t, err)
	require.Equal(t, 8, f.store.Len())

	// 其它 owner 的 id 不会被删除
	del, err := svc.DeleteRecords(ctx, request.RAGDeleteRequest{IDs: []string{res.Fields[0].RecordID}}, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, del.Deleted)
	assert.Equal(t, 8, f.store.Len())

	_, err = svc.DeleteRecords(ctx, request.RAGDeleteRequest{IDs: []string{res.Fields[0].RecordID}}, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, f.store.Len())

	del, err = svc.DeleteRecords(ctx, request.RAGDeleteRequest{All: true}, 7)
	require.NoError(t, err)
	assert.Equal(t, -1, del.Deleted)
	assert.Equal(t, 4, f.store.Len())
}

func TestDeleteRecordsRejectsImplicitDeleteAll(t *testing.T) {
	f := newRAGFixture(t)
	svc := NewIngestService(f.ingest, chunking.NewNoteSplitter(200, 20), f.store, nil)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, request.RAGIngestRequest{Fields: acmeFields()}, 7)
	require.NoError(t, err)

	cases := map[string]request.RAGDeleteRequest{
		"empty":      {},
		"empty list": {IDs: []string{}},
		"blank ids":  {IDs: []string{"  ", ""}},
		"all + ids":  {IDs: []string{"x"}, All: true},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.DeleteRecords(ctx, req, 7)
			var ce *xerr.CodeError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, xerr.BadRequest, ce.Code)
			assert.Equal(t, 4, f.store.Len())
		})
	}
}

func TestRetrieveServiceEmptyIsNotError(t *testing.T) {
	f := newRAGFixture(t)
	obs := &retrieveObs{}
	svc := NewRetrieveService(f.retrieve, obs)

	res, err := svc.Retrieve(context.Background(), request.RAGRetrieveRequest{Query: "skates"}, 99)
	require.NoError(t, err)
	assert.True(t, res.IsEmpty)
	assert.Equal(t, pipeline.NoContextMessage, res.Message)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, obs.calls)
	assert.Equal(t, 1, obs.empty)

	_, err = svc.Retrieve(context.Background(), request.RAGRetrieveRequest{TopK: -1}, 99)
	assert.ErrorIs(t, err, xerr.ErrParam)
}

func TestRetrieveServiceReturnsProfileAndResearch(t *testing.T) {
	f := newRAGFixture(t)
	ctx := context.Background()
	_, err := f.ingest.Ingest(ctx, pipeline.IngestRequest{
		OwnerID: 7,
		Fields:  acmeFields(),
		Items:   []pipeline.IngestItem{{Kind: rag.KindSearchQuestion, Text: "What do coyotes buy?"}},
	})
	require.NoError(t, err)

	svc := NewRetrieveService(f.retrieve, nil)
	res, err := svc.Retrieve(ctx, request.RAGRetrieveRequest{Query: "coyotes", TopK: 3}, 7)
	require.NoError(t, err)
	assert.Len(t, res.Profile, 4)
	require.Len(t, res.Research, 1)
	assert.Equal(t, rag.KindSearchQuestion, res.Research[0].Kind)
	assert.Len(t, res.Records, 5)
	assert.False(t, res.IsEmpty)
}

func strPtr(s string) *string { return &s }

func TestMetadataServiceSuppliedOverridesAndMissing(t *testing.T) {
	c := &fakeCompleter{fn: func(req *plugins.PluginRequest) (*plugins.PluginResponse, error) {
		return &plugins.PluginResponse{Data: plugins.MetadataValues{
			plugins.MetaFieldIndustry: strPtr("Retail"),
			plugins.MetaFieldType:     nil,
			plugins.MetaFieldTopic:    strPtr("Launch"),
			plugins.MetaFieldTone:     strPtr("Formal"),
		}}, nil
	}}
	svc := NewMetadataService(c)

	res, err := svc.Extract(context.Background(), request.ExtractMetadataRequest{
		Text:     "We are launching skates",
		Supplied: map[string]string{plugins.MetaFieldTone: "Playful"},
	}, 7)
	require.NoError(t, err)
	assert.Equal(t, respond.MetadataStatusNeedsClarification, res.Status)
	assert.Equal(t, []string{plugins.MetaFieldType}, res.Missing)
	require.NotNil(t, res.Values[plugins.MetaFieldTone])
	assert.Equal(t, "Playful", *res.Values[plugins.MetaFieldTone])
	assert.Equal(t, "Retail", *res.Values[plugins.MetaFieldIndustry])

	res, err = svc.Extract(context.Background(), request.ExtractMetadataRequest{
		Text:     "We are launching skates",
		Supplied: map[string]string{plugins.MetaFieldType: "Blog"},
	}, 7)
	require.NoError(t, err)
	assert.Equal(t, respond.MetadataStatusComplete, res.Status)
	assert.Empty(t, res.Missing)
}

func TestMetadataServiceSkipsModelWhenFullySupplied(t *testing.T) {
	c := &fakeCompleter{fn: func(req *plugins.PluginRequest) (*plugins.PluginResponse, error) {
		return nil, errors.New("should not be called")
	}}
	svc := NewMetadataService(c)
	res, err := svc.Extract(context.Background(), request.ExtractMetadataRequest{
		Text: "x",
		Supplied: map[string]string{
			plugins.MetaFieldIndustry: "Retail",
			plugins.MetaFieldType:     "Ad",
			plugins.MetaFieldTopic:    "Launch",
			plugins.MetaFieldTone:     "Playful",
		},
	}, 7)
	require.NoError(t, err)
	assert.Equal(t, respond.MetadataStatusComplete, res.Status)
	assert.Empty(t, c.calls)

	_, err = svc.Extract(context.Background(), request.ExtractMetadataRequest{Text: " "}, 7)
	assert.ErrorIs(t, err, xerr.ErrParam)
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[int64]*rag.BusinessProfile
	err      error
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[int64]*rag.BusinessProfile{}}
}

func (r *fakeProfileRepo) GetByOwner(ctx context.Context, ownerID int64) (*rag.BusinessProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.profiles[ownerID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) Upsert(ctx context.Context, p *rag.BusinessProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *p
	r.profiles[p.OwnerId] = &cp
	return nil
}

type fakeLocker struct {
	held     map[string]bool
	unlocked []string
}

func (l *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) Unlock(ctx context.Context, key string) error {
	delete(l.held, key)
	l.unlocked = append(l.unlocked, key)
	return nil
}

func researchCompleter(questions []string, failOn string) *fakeCompleter {
	return &fakeCompleter{fn: func(req *plugins.PluginRequest) (*plugins.PluginResponse, error) {
		switch req.ServiceType {
		case plugins.ServiceSearchQuestions:
			return &plugins.PluginResponse{Data: questions}, nil
		case plugins.ServiceResearchAnswer:
			if req.Input == failOn {
				return nil, xerr.ErrServiceUnavailable
			}
			return &plugins.PluginResponse{Output: "answer to " + req.Input}, nil
		}
		return nil, errors.New("unexpected service type")
	}}
}

func TestResearchServiceIngestsAnsweredQuestions(t *testing.T) {
	f := newRAGFixture(t)
	ctx := context.Background()
	_, err := f.ingest.Ingest(ctx, pipeline.IngestRequest{OwnerID: 7, Fields: acmeFields()})
	require.NoError(t, err)

	c := researchCompleter([]string{"q1", "q2", "q3"}, "q2")
	locker := &fakeLocker{held: map[string]bool{}}
	svc := NewResearchService(f.retrieve, newFakeProfileRepo(), c, f.ingest, f.store, locker, ResearchOptions{})

	res, err := svc.Generate(ctx, request.ResearchGenerateRequest{MaxQuestions: 3}, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2", "q3"}, res.Questions)
	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, ResearchStatusFailed, res.Items[1].Status)
	assert.NotEmpty(t, res.Items[0].RecordID)

	qs := c.callsOf(plugins.ServiceSearchQuestions)
	require.Len(t, qs, 1)
	assert.Equal(t, "Acme", qs[0].Profile[rag.KindCompanyName])
	assert.Equal(t, 3, qs[0].Context["max_questions"])

	hits, err := f.store.Scan(ctx, repository.Filter{OwnerID: 7, KindsIn: []string{rag.KindSearchQuestion}}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "answer to "+h.Text, h.Metadata["answer"])
		assert.Equal(t, "research", h.Metadata["source"])
	}
	assert.Equal(t, []string{"ai:research:7"}, locker.unlocked)
}

func TestResearchServiceRespectsOwnerCap(t *testing.T) {
	f := newRAGFixture(t)
	ctx := context.Background()
	_, err := f.ingest.Ingest(ctx, pipeline.IngestRequest{OwnerID: 7, Fields: acmeFields()})
	require.NoError(t, err)

	c := researchCompleter([]string{"q1", "q2", "q3"}, "")
	svc := NewResearchService(f.retrieve, nil, c, f.ingest, f.store, nil, ResearchOptions{MaxResearchPerOwner: 4})

	res, err := svc.Generate(ctx, request.ResearchGenerateRequest{}, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stored)

	res, err = svc.Generate(ctx, request.ResearchGenerateRequest{}, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, ResearchStatusSkipped, res.Items[1].Status)
	assert.Equal(t, ResearchStatusSkipped, res.Items[2].Status)
	assert.Len(t, c.callsOf(plugins.ServiceResearchAnswer), 4)
}

func TestResearchServiceFallsBackToRelationalProfile(t *testing.T) {
	f := newRAGFixture(t)
	repo := newFakeProfileRepo()
	require.NoError(t, repo.Upsert(context.Background(), &rag.BusinessProfile{OwnerId: 7, CompanyName: "Acme"}))

	c := researchCompleter([]string{}, "")
	svc := NewResearchService(f.retrieve, repo, c, f.ingest, f.store, nil, ResearchOptions{})
	res, err := svc.Generate(context.Background(), request.ResearchGenerateRequest{}, 7)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	qs := c.callsOf(plugins.ServiceSearchQuestions)
	require.Len(t, qs, 1)
	assert.Equal(t, map[string]string{rag.KindCompanyName: "Acme"}, qs[0].Profile)
}

func TestResearchServiceErrors(t *testing.T) {
	f := newRAGFixture(t)
	c := researchCompleter([]string{"q1"}, "")

	svc := NewResearchService(f.retrieve, newFakeProfileRepo(), c, f.ingest, f.store, nil, ResearchOptions{})
	_, err := svc.Generate(context.Background(), request.ResearchGenerateRequest{}, 7)
	assert.ErrorIs(t, err, xerr.ErrNotFound)

	locker := &fakeLocker{held: map[string]bool{"ai:research:7": true}}
	svc = NewResearchService(f.retrieve, newFakeProfileRepo(), c, f.ingest, f.store, locker, ResearchOptions{})
	_, err = svc.Generate(context.Background(), request.ResearchGenerateRequest{}, 7)
	assert.ErrorIs(t, err, xerr.ErrConflict)
	assert.Empty(t, c.calls)
}

func TestContentServiceUsesRetrievedContext(t *testing.T) {
	f := newRAGFixture(t)
	ctx := context.Background()
	_, err := f.ingest.Ingest(ctx, pipeline.IngestRequest{
		OwnerID: 7,
		Fields:  acmeFields(),
		Items: []pipeline.IngestItem{{
			Kind:     rag.KindSearchQuestion,
			Text:     "Where do coyotes shop?",
			Metadata: map[string]any{"answer": "Mostly by mail order."},
		}},
	})
	require.NoError(t, err)

	c := &fakeCompleter{fn: func(req *plugins.PluginRequest) (*plugins.PluginResponse, error) {
		return &plugins.PluginResponse{Output: "Zoom past the roadrunner!", TokensUsed: 12}, nil
	}}
	svc := NewContentService(f.retrieve, c)
	res, err := svc.Generate(ctx, request.ContentGenerateRequest{Request: "Write a tagline", TopK: 3}, 7)
	require.NoError(t, err)
	assert.Equal(t, "Zoom past the roadrunner!", res.Content)
	assert.Equal(t, 12, res.TokensUsed)
	assert.False(t, res.ContextEmpty)
	assert.Len(t, res.Records, 5)

	calls := c.callsOf(plugins.ServiceMarketingContent)
	require.Len(t, calls, 1)
	assert.Equal(t, "Acme", calls[0].Profile[rag.KindCompanyName])
	assert.Equal(t, []string{"Q: Where do coyotes shop?\nA: Mostly by mail order."}, calls[0].Research)
}

func TestContentServiceEmptyContext(t *testing.T) {
	f := newRAGFixture(t)
	c := &fakeCompleter{fn: func(req *plugins.PluginRequest) (*plugins.PluginResponse, error) {
		return &plugins.PluginResponse{Output: "generic"}, nil
	}}
	svc := NewContentService(f.retrieve, c)
	res, err := svc.Generate(context.Background(), request.ContentGenerateRequest{Request: "Write a tagline"}, 9)
	require.NoError(t, err)
	assert.True(t, res.ContextEmpty)
	assert.Empty(t, res.Records)
	calls := c.callsOf(plugins.ServiceMarketingContent)
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Profile)
	assert.Empty(t, calls[0].Research)

	_, err = svc.Generate(context.Background(), request.ContentGenerateRequest{Request: " "}, 9)
	assert.ErrorIs(t, err, xerr.ErrParam)
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []*rag.AIIngestEvent
}

func (r *fakeEventRepo) Create(ctx context.Context, ev *rag.AIIngestEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.Id = int64(len(r.events) + 1)
	cp := *ev
	r.events = append(r.events, &cp)
	return nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id int64) (*rag.AIIngestEvent, error) {
	return nil, nil
}

func (r *fakeEventRepo) TryMarkProcessing(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	return false, nil
}

func (r *fakeEventRepo) MarkSucceeded(ctx context.Context, id int64) error { return nil }

func (r *fakeEventRepo) MarkFailed(ctx context.Context, id int64, errMsg string) error { return nil }

func (r *fakeEventRepo) ListReplayable(ctx context.Context, staleBefore, processingStaleBefore time.Time, maxRetry int, limit int) ([]rag.AIIngestEvent, error) {
	return nil, nil
}

type recordingPublisher struct {
	msgs []mq.Message
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, msg mq.Message) (mq.PublishResult, error) {
	if p.err != nil {
		return mq.PublishResult{}, p.err
	}
	p.msgs = append(p.msgs, msg)
	return mq.PublishResult{}, nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingProcessor struct {
	ids []int64
}

func (p *recordingProcessor) ProcessEvent(ctx context.Context, id int64) error {
	p.ids = append(p.ids, id)
	return nil
}

func profileReq() request.BusinessProfileRequest {
	return request.BusinessProfileRequest{
		CompanyName:        " Acme ",
		ProductDescription: "Rocket powered roller skates",
		TargetAudience:     "Desert dwelling coyotes",
		ToneOfVoice:        "Playful",
	}
}

func TestProfileServiceUpsertInline(t *testing.T) {
	repo := newFakeProfileRepo()
	events := &fakeEventRepo{}
	proc := &recordingProcessor{}
	svc := NewProfileService(repo, events, nil, "", proc)

	res, err := svc.Upsert(context.Background(), profileReq(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Acme", res.CompanyName)
	assert.Equal(t, IngestModeInline, res.IngestMode)
	assert.Equal(t, int64(1), res.IngestEventID)
	assert.Equal(t, []int64{1}, proc.ids)
	require.Len(t, events.events, 1)
	assert.Equal(t, rag.IngestEventTypeProfileUpdated, events.events[0].EventType)
	assert.Equal(t, rag.IngestEventStatusPending, events.events[0].Status)

	got, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Playful", got.ToneOfVoice)
}

func TestProfileServiceUpsertPublishesToKafka(t *testing.T) {
	pub := &recordingPublisher{}
	proc := &recordingProcessor{}
	svc := NewProfileService(newFakeProfileRepo(), &fakeEventRepo{}, pub, "ai.ingest", proc)

	res, err := svc.Upsert(context.Background(), profileReq(), 7)
	require.NoError(t, err)
	assert.Equal(t, IngestModeKafka, res.IngestMode)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "ai.ingest", pub.msgs[0].Topic)
	assert.Empty(t, proc.ids)

	id, err := mq.ParseIngestEventID(pub.msgs[0])
	require.NoError(t, err)
	assert.Equal(t, res.IngestEventID, id)
}

func TestProfileServicePublishFailureFallsBackInline(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	proc := &recordingProcessor{}
	svc := NewProfileService(newFakeProfileRepo(), &fakeEventRepo{}, pub, "ai.ingest", proc)

	res, err := svc.Upsert(context.Background(), profileReq(), 7)
	require.NoError(t, err)
	assert.Equal(t, IngestModeInline, res.IngestMode)
	assert.Equal(t, []int64{1}, proc.ids)
}

func TestProfileServiceErrors(t *testing.T) {
	svc := NewProfileService(newFakeProfileRepo(), &fakeEventRepo{}, nil, "", nil)

	_, err := svc.Upsert(context.Background(), request.BusinessProfileRequest{CompanyName: "  "}, 7)
	assert.ErrorIs(t, err, xerr.ErrParam)

	_, err = svc.Upsert(context.Background(), profileReq(), 0)
	assert.ErrorIs(t, err, xerr.ErrUnauthorized)

	_, err = svc.Get(context.Background(), 7)
	assert.ErrorIs(t, err, xerr.ErrNotFound)
	assert.True(t, strings.Contains(err.Error(), "404"))
}
