package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/phish-detect/internal/dom"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/semaphore"
)

// ProcessedAttr mirrors the ProcessingMark onto the claimed node
const ProcessedAttr = "data-phish-detect-processed"

// PipelineCoordinator runs extraction, classification, annotation and the
// blocklist check for every submitted candidate node
type PipelineCoordinator struct {
	doc        *dom.Document
	tracker    ClaimTracker
	key        KeyFunc
	extractor  Extractor
	classifier ClassificationClient
	annotator  Annotator
	blocklist  BlocklistGate
	publisher  Publisher
	recorder   Recorder
	logger     *zap.Logger

	gate *semaphore.Weighted

	mu       sync.Mutex
	idle     *sync.Cond
	running  int
	outcomes map[string]*outcome
}

// outcome is what the pipeline has learnt so far about one message. A
// message the host re-renders keeps its key but arrives as a new node;
// replicas collects those nodes so they carry the same annotations.
type outcome struct {
	node     *html.Node
	replicas []*html.Node
	result   *Classification
	blocked  bool
}

func (o *outcome) nodes() []*html.Node {
	return append([]*html.Node{o.node}, o.replicas...)
}

// CoordinatorOption customises a PipelineCoordinator
type CoordinatorOption func(*PipelineCoordinator)

// WithPublisher pushes annotations to the display after each rendering pass
func WithPublisher(p Publisher) CoordinatorOption {
	return func(c *PipelineCoordinator) {
		if p != nil {
			c.publisher = p
		}
	}
}

// WithRecorder reports pipeline events
func WithRecorder(r Recorder) CoordinatorOption {
	return func(c *PipelineCoordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithMaxInFlight bounds the number of pipelines past extraction at any
// time. Zero or less means unbounded.
func WithMaxInFlight(n int) CoordinatorOption {
	return func(c *PipelineCoordinator) {
		if n > 0 {
			c.gate = semaphore.NewWeighted(int64(n))
		} else {
			c.gate = nil
		}
	}
}

// NewPipelineCoordinator creates a new pipeline coordinator
func NewPipelineCoordinator(
	doc *dom.Document,
	tracker ClaimTracker,
	key KeyFunc,
	extractor Extractor,
	classifier ClassificationClient,
	annotator Annotator,
	blocklist BlocklistGate,
	logger *zap.Logger,
	opts ...CoordinatorOption,
) *PipelineCoordinator {
	c := &PipelineCoordinator{
		doc:        doc,
		tracker:    tracker,
		key:        key,
		extractor:  extractor,
		classifier: classifier,
		annotator:  annotator,
		blocklist:  blocklist,
		publisher:  nopPublisher{},
		recorder:   nopRecorder{},
		logger:     logger,
		outcomes:   make(map[string]*outcome),
	}
	c.idle = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit claims node and extracts its fields in a single document
// transaction, then finishes the pipeline in the background. It returns
// false when the message was already claimed; a new node for a claimed
// message gets the annotations produced for it instead.
func (c *PipelineCoordinator) Submit(ctx context.Context, node *html.Node) bool {
	c.recorder.Submitted()
	ctx = context.WithoutCancel(ctx)

	var (
		key      string
		claimed  bool
		replayed bool
		fields   ExtractedFields
	)
	c.doc.Update(func(tx *dom.Tx) {
		key = c.key(node)
		if !c.tracker.TryClaim(key) {
			replayed = c.adopt(tx, key, node)
			return
		}
		claimed = true
		tx.SetAttr(node, ProcessedAttr, "true")
		fields = c.extractor.Extract(node)

		c.mu.Lock()
		c.outcomes[key] = &outcome{node: node}
		c.mu.Unlock()
	})
	if !claimed {
		c.recorder.Skipped()
		if replayed {
			c.logger.Debug("Re-rendered annotations onto replaced node", zap.String("key", key))
			c.spawn(func() {
				c.publish(ctx, c.logger.With(zap.String("key", key)), node)
			})
		} else {
			c.logger.Debug("Skipping already claimed node", zap.String("key", key))
		}
		return false
	}

	id := uuid.NewString()
	log := c.logger.With(zap.String("processing_id", id), zap.String("key", key))
	c.transition(log, StateClaimed)
	c.transition(log, StateExtracted)
	log.Debug("Extracted message fields",
		zap.String("sender", fields.Sender),
		zap.String("sender_email", fields.SenderEmail),
		zap.String("subject", fields.Subject))

	c.spawn(func() {
		c.process(ctx, log, key, fields)
	})
	return true
}

// adopt attaches node to the outcome of an already claimed message and
// renders what is known so far. It must run inside a document transaction.
// It reports whether anything was rendered.
func (c *PipelineCoordinator) adopt(tx *dom.Tx, key string, node *html.Node) bool {
	if _, seen := dom.Attr(node, ProcessedAttr); seen {
		return false
	}

	c.mu.Lock()
	o, ok := c.outcomes[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	o.replicas = append(o.replicas, node)
	result, blocked := o.result, o.blocked
	c.mu.Unlock()

	tx.SetAttr(node, ProcessedAttr, "true")
	if result == nil {
		return false
	}
	c.annotator.RenderClassification(tx, node, result)
	if blocked {
		c.annotator.RenderBlocklistWarning(tx, node)
	}
	return true
}

// record updates the outcome of key and returns every node showing it. It
// must run inside a document transaction.
func (c *PipelineCoordinator) record(key string, fn func(o *outcome)) []*html.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := c.outcomes[key]
	fn(o)
	return o.nodes()
}

// spawn runs fn in the background, tracked by Wait
func (c *PipelineCoordinator) spawn(fn func()) {
	c.mu.Lock()
	c.running++
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			c.running--
			if c.running == 0 {
				c.idle.Broadcast()
			}
			c.mu.Unlock()
		}()
		fn()
	}()
}

// Wait blocks until every submitted pipeline is done. Submissions may
// continue while it waits.
func (c *PipelineCoordinator) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.running > 0 {
		c.idle.Wait()
	}
}

func (c *PipelineCoordinator) process(ctx context.Context, log *zap.Logger, key string, fields ExtractedFields) {
	defer c.transition(log, StateDone)

	if c.gate != nil {
		// ctx is never cancelled, Acquire only returns once a slot frees up
		if err := c.gate.Acquire(ctx, 1); err != nil {
			log.Error("Failed to acquire pipeline slot", zap.Error(err))
			return
		}
		defer c.gate.Release(1)
	}
	c.recorder.InFlight(1)
	defer c.recorder.InFlight(-1)

	start := time.Now()
	result, err := c.classifier.Classify(ctx, fields.FullText)
	c.recorder.ClassificationLatency(time.Since(start).Seconds(), err == nil && result != nil)
	if err != nil || result == nil {
		c.transition(log, StateClassificationFailed)
		log.Warn("Classification failed, leaving message unannotated", zap.Error(err))
		return
	}
	c.transition(log, StateClassified)

	// Recording inside the transaction orders it against adopt
	var nodes []*html.Node
	c.doc.Update(func(tx *dom.Tx) {
		nodes = c.record(key, func(o *outcome) { o.result = result })
		for _, n := range nodes {
			c.annotator.RenderClassification(tx, n, result)
		}
	})
	c.transition(log, StateAnnotated)
	log.Info("Message classified",
		zap.String("sender_email", fields.SenderEmail),
		zap.String("label", result.Label.String()),
		zap.String("score", FormatScore(result.Score)))
	c.publishAll(ctx, log, nodes)

	blocked, err := c.blocklist.IsBlocked(ctx, fields.SenderEmail)
	if err != nil {
		log.Warn("Failed to read blocklist, treating sender as not blocked",
			zap.String("sender_email", fields.SenderEmail),
			zap.Error(err))
		blocked = false
	}
	c.transition(log, StateBlocklistChecked)
	if !blocked {
		return
	}

	log.Info("Sender is blocklisted", zap.String("sender_email", fields.SenderEmail))
	c.doc.Update(func(tx *dom.Tx) {
		nodes = c.record(key, func(o *outcome) { o.blocked = true })
		for _, n := range nodes {
			c.annotator.RenderBlocklistWarning(tx, n)
		}
	})
	c.publishAll(ctx, log, nodes)
}

func (c *PipelineCoordinator) publishAll(ctx context.Context, log *zap.Logger, nodes []*html.Node) {
	for _, n := range nodes {
		c.publish(ctx, log, n)
	}
}

func (c *PipelineCoordinator) publish(ctx context.Context, log *zap.Logger, node *html.Node) {
	if err := c.publisher.Publish(ctx, node); err != nil {
		log.Warn("Failed to publish annotations", zap.Error(err))
	}
}

func (c *PipelineCoordinator) transition(log *zap.Logger, state State) {
	c.recorder.Transition(state)
	log.Debug("Pipeline transition", zap.String("state", string(state)))
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, *html.Node) error { return nil }

type nopRecorder struct{}

func (nopRecorder) Submitted() {}
func (nopRecorder) Skipped() {}
func (nopRecorder) Transition(State) {}
func (nopRecorder) ClassificationLatency(float64, bool) {}
func (nopRecorder) InFlight(int) {}
