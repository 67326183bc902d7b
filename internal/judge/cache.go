package judge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sells-group/feasibility-cli/internal/mapper"
	"github.com/sells-group/feasibility-cli/internal/model"
)

// CachedJudge memoizes successful judgments by request fingerprint. A
// batch asks the same questionnaire of many sites; sites with identical
// relevant facts share one provider call.
type CachedJudge struct {
	next  mapper.Judge
	cache *gocache.Cache
}

// Cached wraps next with an in-memory memo whose entries expire after ttl.
func Cached(next mapper.Judge, ttl time.Duration) *CachedJudge {
	return &CachedJudge{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Judge returns a memoized judgment when one exists. Hits report zero
// token usage. Errors are never cached.
func (c *CachedJudge) Judge(ctx context.Context, req mapper.JudgeRequest) (*mapper.Judgment, error) {
	key := Fingerprint(req)
	if v, ok := c.cache.Get(key); ok {
		hit := *v.(*mapper.Judgment)
		hit.FactKeys = append([]string(nil), hit.FactKeys...)
		hit.Usage = model.TokenUsage{}
		return &hit, nil
	}

	j, err := c.next.Judge(ctx, req)
	if err != nil {
		return nil, err
	}
	if j != nil {
		stored := *j
		stored.FactKeys = append([]string(nil), j.FactKeys...)
		c.cache.SetDefault(key, &stored)
	}
	return j, nil
}

// Len returns the number of memoized judgments.
func (c *CachedJudge) Len() int { return c.cache.ItemCount() }

// Fingerprint hashes everything the prompt is built from.
func Fingerprint(req mapper.JudgeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "q=%s|obj=%t|sec=%s\n", req.Question.Text, req.Question.IsObjective, req.Question.Section)
	for _, f := range req.Facts {
		fmt.Fprintf(&b, "f=%s=%s %s\n", f.Key, f.Value.String(), f.Unit)
	}
	for _, r := range req.Requirements {
		fmt.Fprintf(&b, "r=%s|%s|%s|%s|%s|%s\n", r.Key, r.Operator, r.Value.String(), r.Unit, r.Criticality, r.SourceText)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
