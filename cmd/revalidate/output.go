package main

import (
	"fmt"
	"io"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/always-cache/revalidate/body"
	"github.com/always-cache/revalidate/transport"
)

type printer struct {
	w io.Writer
	// GJSON path applied to structured bodies
	selector string
}

// print writes one delivery: a status line followed by the body.
func (p printer) print(n int, r transport.Result) error {
	status := "-"
	cacheStatus := "-"
	if r.Meta != nil {
		if r.Meta.StatusCode != 0 {
			status = fmt.Sprint(r.Meta.StatusCode)
		}
		if r.Meta.CacheStatus != nil {
			cacheStatus = r.Meta.CacheStatus.String()
		}
	}
	if !r.OK() {
		_, err := fmt.Fprintf(p.w, "#%d failure %s [%s]: %v\n", n, status, cacheStatus, r.Err)
		return err
	}
	if _, err := fmt.Fprintf(p.w, "#%d %s %s [%s]\n", n, r.Body.Kind(), status, cacheStatus); err != nil {
		return err
	}
	out, err := p.render(r.Body)
	if err != nil {
		return err
	}
	_, err = p.w.Write(out)
	return err
}

func (p printer) render(b body.Body) ([]byte, error) {
	switch b.Kind() {
	case body.KindAbsent:
		return nil, nil
	case body.KindText:
		return []byte(b.Text() + "\n"), nil
	}
	canonical, err := b.Canonical()
	if err != nil {
		return nil, err
	}
	if p.selector != "" {
		res := gjson.GetBytes(canonical, p.selector)
		if !res.Exists() {
			return []byte("null\n"), nil
		}
		canonical = []byte(res.Raw)
	}
	return pretty.Pretty(canonical), nil
}
