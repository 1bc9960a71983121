package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orders-intake/constants"
	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/extract"
	"github.com/joseph-ayodele/orders-intake/internal/extract/extracttest"
	"github.com/joseph-ayodele/orders-intake/internal/llm"
	"github.com/joseph-ayodele/orders-intake/internal/llm/llmtest"
	"github.com/joseph-ayodele/orders-intake/internal/reference/referencetest"
)

const (
	fraileReply = `{"customer_names":["Fraile y Nuñez S.L."],"needs_fuzzy_match":true}`
	oneLine     = `{"order_lines":[{"family":"Nature","length":140,"width":80,"color":"Blanco","quantity":1}]}`
	twoLines    = `{"order_lines":[
		{"family":"Nature","length":140,"width":80,"color":"Blanco","quantity":1},
		{"family":"Premium","length":120,"width":70,"color":"Moka","quantity":2}]}`
	badFamily = `{"order_lines":[{"family":"Xyz","length":140,"width":80,"color":"Blanco","quantity":1}]}`
)

func newOrchestrator(t *testing.T, fake llm.Completer) *Orchestrator {
	t.Helper()
	prompts, err := extract.DefaultPrompts()
	require.NoError(t, err)
	caller := llm.NewCaller(fake, llm.WithRetry(2, time.Millisecond))
	o := NewOrchestrator(nil, Config{OrderConcurrency: 2, FieldConcurrency: 3},
		extract.New(caller, prompts, extract.Thresholds{}, nil, nil))
	o.Now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return o
}

func ok(text string) llmtest.Reply { return llmtest.Reply{Text: text} }

func TestRunPartialBatch(t *testing.T) {
	fake := extracttest.PerOrder(map[string]extracttest.Replies{
		"[order-a]": {extracttest.CustomerKey: ok(fraileReply), extracttest.SKUKey: ok(oneLine)},
		"[order-b]": {extracttest.CustomerKey: ok(fraileReply), extracttest.SKUKey: ok(badFamily)},
		"[order-c]": {extracttest.CustomerKey: ok(fraileReply), extracttest.SKUKey: ok(oneLine)},
	})
	entries := []entity.Entry{
		{EntryID: "E1", RawText: "[order-a] 1 plato nature 140x80 blanco"},
		{EntryID: "E2", RawText: "[order-b] 1 plato xyz 140x80 blanco"},
		{EntryID: "E3", RawText: "[order-c] 1 plato nature 140x80 blanco"},
	}

	var (
		mu       sync.Mutex
		percents []int
	)
	res := newOrchestrator(t, fake).Run(context.Background(), entries, referencetest.Bundle(), func(p int, _ string) {
		mu.Lock()
		percents = append(percents, p)
		mu.Unlock()
	})

	require.Len(t, res.Succeeded, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 1, res.Succeeded[0].OrderNo)
	assert.Equal(t, 3, res.Succeeded[1].OrderNo)
	assert.Equal(t, "NAT140080BLCO", res.Succeeded[0].SKU)
	assert.Equal(t, "C001", res.Succeeded[0].CustomerID)

	failed := res.Failed[0]
	assert.Equal(t, 2, failed.OrderNo)
	assert.Equal(t, "E2", failed.EntryID)
	reasons := map[string]bool{}
	for _, f := range failed.Failures {
		reasons[f.Reason] = true
		assert.Equal(t, 2, f.OrderNo)
	}
	assert.True(t, reasons[extract.ReasonFamilyNoMatch])
	assert.NotEmpty(t, res.Failures())

	require.NotEmpty(t, percents)
	assert.Equal(t, 0, percents[0])
	assert.Equal(t, ExtractionProgressMax, percents[len(percents)-1])
	for _, p := range percents {
		assert.LessOrEqual(t, p, ExtractionProgressMax)
	}
}

func TestExtractOrderCPSDFailureIsIsolated(t *testing.T) {
	fake := extracttest.Replies{
		extracttest.CustomerKey: ok(fraileReply),
		extracttest.SKUKey:      ok(oneLine),
		extracttest.ValveKey:    ok(`{"valves":["Vertical valve"]}`),
		extracttest.CPSDKey:     {Err: errors.New("upstream timeout")},
	}.Fake()

	out := newOrchestrator(t, fake).ExtractOrder(context.Background(), entity.Entry{EntryID: "E1", RawText: "pedido"}, referencetest.Bundle(), 1)
	require.Len(t, out.Succeeded, 1)
	assert.Empty(t, out.Failed)

	r := out.Succeeded[0]
	assert.Equal(t, "NAT140080BLCO", r.SKU)
	assert.Equal(t, 1, r.Quantity)
	assert.Equal(t, constants.ValveVertical, r.Valve)
	assert.Nil(t, r.CPSD)
	require.Len(t, r.Failures, 1)
	assert.Equal(t, entity.FailureExternalCall, r.Failures[0].Kind)
	assert.Equal(t, "cpsd", r.Failures[0].Field)
	assert.Equal(t, 1, r.Failures[0].LineNo)
}

func TestExtractOrderCustomerCallFailure(t *testing.T) {
	fake := extracttest.Replies{
		extracttest.CustomerKey: {Err: errors.New("connection reset")},
		extracttest.SKUKey:      ok(oneLine),
	}.Fake()

	out := newOrchestrator(t, fake).ExtractOrder(context.Background(), entity.Entry{EntryID: "E9", RawText: "pedido"}, referencetest.Bundle(), 4)
	assert.Empty(t, out.Succeeded)
	require.Len(t, out.Failed, 1)

	r := out.Failed[0]
	assert.Equal(t, 4, r.OrderNo)
	assert.Empty(t, r.SKU)
	assert.Equal(t, entity.FailureExternalCall, r.Failures[0].Kind)
	assert.Equal(t, "customer_id", r.Failures[0].Field)

	for _, req := range fake.Requests {
		assert.Contains(t, req.Prompt, extracttest.CustomerKey, "field extractors must not run")
	}
}

func TestExtractOrderCustomerLocalErrorKeepsFields(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "extract", "prompts.toml"))
	require.NoError(t, err)
	// the customer prompt is the first template; make it fail to render
	broken := strings.Replace(string(data), "{{ .Text }}", "{{ .Unknown }}", 1)
	prompts, err := extract.ParsePrompts([]byte(broken))
	require.NoError(t, err)

	fake := extracttest.Replies{extracttest.SKUKey: ok(oneLine)}.Fake()
	o := NewOrchestrator(nil, Config{}, extract.New(llm.NewCaller(fake, llm.WithRetry(1, time.Millisecond)), prompts, extract.Thresholds{}, nil, nil))

	out := o.ExtractOrder(context.Background(), entity.Entry{EntryID: "E1", RawText: "pedido"}, referencetest.Bundle(), 3)
	assert.Empty(t, out.Succeeded)
	require.Len(t, out.Failed, 1)

	r := out.Failed[0]
	assert.Equal(t, "NAT140080BLCO", r.SKU, "field extractors still run")
	assert.Empty(t, r.CustomerID)
	require.NotEmpty(t, r.Failures)
	assert.Equal(t, entity.FailureException, r.Failures[0].Kind)
	assert.Equal(t, "customer_id", r.Failures[0].Field)
	assert.Equal(t, "customer could not be identified", r.Failures[0].Reason)
	assert.Equal(t, 3, r.Failures[0].OrderNo)
}

func TestFieldFailuresLogInFixedOrder(t *testing.T) {
	fake := extracttest.Replies{
		extracttest.CustomerKey:  ok(fraileReply),
		extracttest.SKUKey:       ok(oneLine),
		extracttest.ReferenceKey: {Err: errors.New("timeout")},
		extracttest.ValveKey:     {Err: errors.New("timeout")},
		extracttest.CPSDKey:      {Err: errors.New("timeout")},
		extracttest.OptionsKey:   {Err: errors.New("timeout")},
	}.Fake()

	for i := 0; i < 5; i++ {
		var buf bytes.Buffer
		o := newOrchestrator(t, fake)
		o.Logger = slog.New(slog.NewJSONHandler(&buf, nil))
		o.ExtractOrder(context.Background(), entity.Entry{EntryID: "E1", RawText: "pedido"}, referencetest.Bundle(), 1)

		var got []string
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			var rec struct {
				Msg      string `json:"msg"`
				Subagent string `json:"subagent"`
			}
			require.NoError(t, json.Unmarshal([]byte(line), &rec))
			if rec.Msg == "pipeline.field.failed" {
				got = append(got, rec.Subagent)
			}
		}
		assert.Equal(t, []string{"reference", "valve", "cpsd", "options"}, got)
	}
}

func TestCallFailureKinds(t *testing.T) {
	assert.Equal(t, entity.FailureExternalCall, callFailure("sku", "sku", common.ExternalCallError("llm", errors.New("503"))).Kind)
	assert.Equal(t, entity.FailureInvalidFieldFormat, callFailure("sku", "sku", fmt.Errorf("%w: decode reply", common.ErrInvalidFieldFormat)).Kind)
	assert.Equal(t, entity.FailureException, callFailure("sku", "sku", errors.New("render prompt")).Kind)
}

func TestExtractOrderUnmatchedCustomerKeepsFields(t *testing.T) {
	fake := extracttest.Replies{
		extracttest.CustomerKey:  ok(`{"customer_names":["Zyx SA"]}`),
		extracttest.SKUKey:       ok(twoLines),
		extracttest.ReferenceKey: ok(`{"reference_nos":["R-1"]}`),
	}.Fake()

	out := newOrchestrator(t, fake).ExtractOrder(context.Background(), entity.Entry{EntryID: "E1", RawText: "pedido"}, referencetest.Bundle(), 1)
	assert.Empty(t, out.Succeeded)
	require.Len(t, out.Failed, 2)
	for _, r := range out.Failed {
		assert.NotEmpty(t, r.SKU)
		require.NotNil(t, r.ReferenceNo)
		assert.Equal(t, "R-1", *r.ReferenceNo)
		assert.Equal(t, entity.FailureNoMatchFound, r.Failures[0].Kind)
	}
}

func TestRunRecoversPanics(t *testing.T) {
	good := extracttest.PerOrder(map[string]extracttest.Replies{
		"[order-a]": {extracttest.CustomerKey: ok(fraileReply), extracttest.SKUKey: ok(oneLine)},
	})
	fake := &llmtest.Fake{Respond: func(req llm.Request) (llmtest.Reply, bool) {
		if strings.Contains(req.Prompt, "[order-b]") {
			panic("boom")
		}
		text, err := good.Complete(context.Background(), req)
		return llmtest.Reply{Text: text, Err: err}, true
	}}
	entries := []entity.Entry{
		{EntryID: "E1", RawText: "[order-a]"},
		{EntryID: "E2", RawText: "[order-b]"},
	}

	res := newOrchestrator(t, fake).Run(context.Background(), entries, referencetest.Bundle(), nil)
	require.Len(t, res.Succeeded, 1)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 2, res.Failed[0].OrderNo)
	assert.Equal(t, entity.FailureException, res.Failed[0].Failures[0].Kind)
	assert.Contains(t, res.Failed[0].Failures[0].Message, "boom")
}

func TestRunEmptyAndCancelled(t *testing.T) {
	o := newOrchestrator(t, &llmtest.Fake{})

	var last int
	res := o.Run(context.Background(), nil, referencetest.Bundle(), func(p int, _ string) { last = p })
	assert.Empty(t, res.Succeeded)
	assert.Empty(t, res.Failed)
	assert.Equal(t, ExtractionProgressMax, last)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = o.Run(ctx, []entity.Entry{{EntryID: "E1", RawText: "x"}}, referencetest.Bundle(), nil)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, entity.FailureException, res.Failed[0].Failures[0].Kind)
}

func TestMerge(t *testing.T) {
	b := referencetest.Bundle()
	catalog := b.Catalog(0.6, nil)
	cust := extract.CustomerResult{ID: "C001", Name: "FRAILE Y NÚÑEZ"}
	addr := "Calle Mayor 5, 28013, Madrid, Madrid"
	lines := []extract.Line{
		{SKU: "NAT140080BLCO", Quantity: 1, Family: entity.Family{Desc: "Nature", Prefix: "NAT"}},
		{SKU: "NAT120070MOKA", Quantity: 2, Family: entity.Family{Desc: "Nature", Prefix: "NAT"}},
	}

	f := &fields{
		sku:    extract.SKUResult{Lines: lines},
		refs:   []*string{strp("R-1"), strp("R-2")},
		valves: []constants.Valve{constants.ValveHorizontal},
		addr:   extract.AddressResult{Address: &addr},
		cpsd:   extract.CPSDResult{Dates: []*string{strp("2025-03-15")}, EntryID: "AAMk"},
		opts:   extract.OptionsResult{HasOptions: true, Color: "moka", Quantity: 2},
	}
	recs := merge(entity.Entry{EntryID: "E1"}, 7, cust, f, catalog)
	require.Len(t, recs, 2)
	for i, r := range recs {
		assert.Equal(t, 7, r.OrderNo)
		assert.Equal(t, i+1, r.LineNo)
		assert.Equal(t, "AAMk", r.EntryID)
		assert.Equal(t, "2025-03-15", *r.CPSD)
		assert.Equal(t, addr, *r.DeliveryAddress)
		assert.Equal(t, "OPT-NAT-MOKA", *r.OptionSKU)
		assert.Equal(t, 2.0, *r.OptionQty)
		assert.Empty(t, r.Failures)
	}
	assert.Equal(t, "R-1", *recs[0].ReferenceNo)
	assert.Equal(t, "R-2", *recs[1].ReferenceNo)
	assert.Equal(t, constants.ValveHorizontal, recs[0].Valve)
	assert.Equal(t, constants.ValveNone, recs[1].Valve)

	t.Run("no lines gives one placeholder", func(t *testing.T) {
		f := &fields{sku: extract.SKUResult{Failure: &entity.FailureContext{Reason: extract.ReasonNoOrderLines}}}
		recs := merge(entity.Entry{EntryID: "E1"}, 2, cust, f, catalog)
		require.Len(t, recs, 1)
		assert.Equal(t, "C001", recs[0].CustomerID)
		assert.Equal(t, extract.ReasonNoOrderLines, recs[0].Failures[0].Reason)
		assert.Equal(t, 2, recs[0].Failures[0].OrderNo)
	})
}

func strp(s string) *string { return &s }

func TestAssignReferences(t *testing.T) {
	vals := func(ps []*string) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			if p != nil {
				out[i] = *p
			}
		}
		return out
	}
	a, b := strp("a"), strp("b")
	assert.Equal(t, []string{"a", "b"}, vals(assignReferences([]*string{a, b}, 2)))
	assert.Equal(t, []string{"a", "a", "a"}, vals(assignReferences([]*string{a}, 3)))
	assert.Equal(t, []string{"a, b"}, vals(assignReferences([]*string{a, nil, b}, 1)))
	assert.Nil(t, assignReferences([]*string{nil, nil}, 1)[0])
	assert.Equal(t, []string{"", "", ""}, vals(assignReferences([]*string{a, b}, 3)))
	assert.Equal(t, []string{""}, vals(assignReferences(nil, 1)))

	t.Run("nil slot keeps its line empty", func(t *testing.T) {
		got := assignReferences([]*string{a, nil}, 2)
		assert.Equal(t, "a", *got[0])
		assert.Nil(t, got[1])
	})

	d := strp("d")
	assert.Equal(t, []string{"d", "d"}, vals(assignDates([]*string{d}, 2)))
	assert.Equal(t, []string{""}, vals(assignDates([]*string{d, strp("e")}, 1)))
	got := assignDates([]*string{d, nil}, 2)
	assert.Equal(t, "d", *got[0])
	assert.Nil(t, got[1])
}

func TestExtractOrderDatesStayOnTheirLines(t *testing.T) {
	tests := []struct {
		name       string
		cpsds      string
		wantFailed bool
	}{
		{"null second date", `{"cpsds":["2025-10-15",null]}`, false},
		{"unreadable second date", `{"cpsds":["2025-10-15","cuando puedas"]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := extracttest.Replies{
				extracttest.CustomerKey:  ok(fraileReply),
				extracttest.SKUKey:       ok(twoLines),
				extracttest.CPSDKey:      ok(tt.cpsds),
				extracttest.ReferenceKey: ok(`{"reference_nos":["R-1",null]}`),
			}.Fake()

			out := newOrchestrator(t, fake).ExtractOrder(context.Background(), entity.Entry{EntryID: "E1", RawText: "pedido"}, referencetest.Bundle(), 1)
			records := append(append([]entity.OrderRecord{}, out.Succeeded...), out.Failed...)
			require.Len(t, records, 2)
			byLine := map[int]entity.OrderRecord{}
			for _, r := range records {
				byLine[r.LineNo] = r
			}

			require.NotNil(t, byLine[1].CPSD)
			assert.Equal(t, "2025-10-15", *byLine[1].CPSD)
			assert.Nil(t, byLine[2].CPSD, "line 2 must not take line 1's date")
			require.NotNil(t, byLine[1].ReferenceNo)
			assert.Equal(t, "R-1", *byLine[1].ReferenceNo)
			assert.Nil(t, byLine[2].ReferenceNo)

			var cpsdFailure bool
			for _, fc := range byLine[2].Failures {
				if fc.Field == "cpsd" && fc.Kind == entity.FailureInvalidFieldFormat {
					cpsdFailure = true
				}
			}
			assert.Equal(t, tt.wantFailed, cpsdFailure)
		})
	}
}
