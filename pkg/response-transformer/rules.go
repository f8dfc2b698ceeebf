// Package responsetransformer rewrites caching headers of origin responses
// before they are considered for storage.
package responsetransformer

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type Rules []Rule

// Rule matches GET responses by host, path and query.
// Empty match fields match everything.
type Rule struct {
	Host     string            `yaml:"host"`
	Prefix   string            `yaml:"prefix"`
	Path     string            `yaml:"path"`
	Default  string            `yaml:"default"`
	Override string            `yaml:"override"`
	Query    map[string]string `yaml:"query"`
	Headers  map[string]string `yaml:"headers"`
}

// Apply applies the first matching rule to a 200 response.
// The response must have its Request set.
func (r Rules) Apply(res *http.Response) {
	// only apply rules for successes
	if res.StatusCode != http.StatusOK || res.Request == nil {
		return
	}
	// if rule found, apply to response
	if rule := r.find(res); rule != nil {
		applyRuleToResponse(*rule, res)
	}
}

func applyRuleToResponse(rule Rule, res *http.Response) {
	if rule.Override != "" {
		log.Trace().Msg("Overriding Cache-Control header")
		res.Header.Set("Cache-Control", rule.Override)
	} else if rule.Default != "" && res.Header.Get("Cache-Control") == "" {
		log.Trace().Msg("Applying default Cache-Control header")
		res.Header.Set("Cache-Control", rule.Default)
	}
	for name, value := range rule.Headers {
		log.Trace().Msgf("Setting header %s", name)
		res.Header.Set(name, value)
	}
}

func (r Rules) find(res *http.Response) *Rule {
	req := res.Request
	log.Trace().Msgf("Finding rule for request %s%s", req.URL.Host, req.URL.Path)
rulesLoop:
	for _, rule := range r {
		if req.Method != http.MethodGet {
			continue
		}
		if rule.Host != "" && !strings.EqualFold(rule.Host, req.URL.Host) {
			continue
		}
		if rule.Path != "" && rule.Path != req.URL.Path {
			continue
		}
		if rule.Prefix != "" && !strings.HasPrefix(req.URL.Path, rule.Prefix) {
			continue
		}
		if len(rule.Query) > 0 {
			qry := req.URL.Query()
			for name, value := range rule.Query {
				if value == "" && !qry.Has(name) {
					continue rulesLoop
				} else if value != "" && qry.Get(name) != value {
					continue rulesLoop
				}
			}
		}
		return &rule
	}
	return nil
}
