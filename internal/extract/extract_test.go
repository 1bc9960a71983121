package extract_test

import (
	"context"
	"errors"
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

func newExtractors(t *testing.T, fake llm.Completer) *extract.Extractors {
	t.Helper()
	prompts, err := extract.DefaultPrompts()
	require.NoError(t, err)
	caller := llm.NewCaller(fake, llm.WithRetry(2, time.Millisecond))
	return extract.New(caller, prompts, extract.Thresholds{}, nil, nil)
}

func reply(key, text string) *llmtest.Fake {
	return extracttest.Replies{key: {Text: text}}.Fake()
}

func TestPrompts(t *testing.T) {
	p, err := extract.DefaultPrompts()
	require.NoError(t, err)

	req, err := p.Render("customer", struct{ Text string }{"pedido urgente"})
	require.NoError(t, err)
	assert.Equal(t, llm.TierComplex, req.Tier)
	assert.Contains(t, req.Prompt, extracttest.CustomerKey)
	assert.Contains(t, req.Prompt, "pedido urgente")
	assert.NotEmpty(t, req.System)

	req, err = p.Render("valve", struct {
		Text   string
		Valves []string
	}{"x", constants.ValveValues()})
	require.NoError(t, err)
	assert.Equal(t, llm.TierDefault, req.Tier)
	assert.Contains(t, req.Prompt, `"no", "Yes", "Horizontal valve"`)

	_, err = p.Render("missing", nil)
	assert.Error(t, err)

	_, err = extract.ParsePrompts([]byte("[customer]\nuser = \"x\"\n"))
	assert.ErrorContains(t, err, `missing "sku"`)
}

func TestCustomer(t *testing.T) {
	ctx := context.Background()
	b := referencetest.Bundle()
	entry := entity.Entry{EntryID: "E1", RawText: "Buenos días, pedido adjunto."}

	t.Run("fuzzy match", func(t *testing.T) {
		e := newExtractors(t, reply(extracttest.CustomerKey,
			`{"customer_names":["Fraile y Nuñez S.L."],"customer_id":null,"needs_fuzzy_match":true}`))
		res, err := e.Customer(ctx, entry, b)
		require.NoError(t, err)
		assert.Equal(t, referencetest.FraileID, res.ID)
		assert.Equal(t, extract.ViaFuzzy, res.Via)
		assert.Nil(t, res.Failure)
	})

	t.Run("direct id trusted when known", func(t *testing.T) {
		e := newExtractors(t, reply(extracttest.CustomerKey,
			`{"customer_names":[],"customer_id":"C003","needs_fuzzy_match":false}`))
		res, err := e.Customer(ctx, entry, b)
		require.NoError(t, err)
		assert.Equal(t, referencetest.BarrosoID, res.ID)
		assert.Equal(t, extract.ViaLLM, res.Via)
	})

	t.Run("unknown direct id falls back to names", func(t *testing.T) {
		e := newExtractors(t, reply(extracttest.CustomerKey,
			`{"customer_names":["FRAILE Y NUÑEZ"],"customer_id":"C999","needs_fuzzy_match":false}`))
		res, err := e.Customer(ctx, entry, b)
		require.NoError(t, err)
		assert.Equal(t, referencetest.FraileID, res.ID)
		assert.Equal(t, extract.ViaFuzzy, res.Via)
	})

	t.Run("sender email fallback", func(t *testing.T) {
		e := newExtractors(t, reply(extracttest.CustomerKey,
			`{"customer_names":["Zyx SA"],"needs_fuzzy_match":true}`))
		withSender := entity.Entry{EntryID: "E2", RawText: "De: Pedidos <Pedidos@Soria-Materiales.es>\nAsunto: pedido\n\n2 platos"}
		res, err := e.Customer(ctx, withSender, b)
		require.NoError(t, err)
		assert.Equal(t, referencetest.SoriaID, res.ID)
		assert.Equal(t, extract.ViaEmail, res.Via)
	})

	t.Run("no match records failure context", func(t *testing.T) {
		e := newExtractors(t, reply(extracttest.CustomerKey,
			`{"customer_names":["Zyx SA"],"needs_fuzzy_match":true}`))
		res, err := e.Customer(ctx, entity.Entry{RawText: "De: otro@example.com\nhola"}, b)
		require.NoError(t, err)
		assert.False(t, res.Resolved())
		require.NotNil(t, res.Failure)
		assert.Equal(t, entity.FailureNoMatchFound, res.Failure.Kind)
		assert.Equal(t, "customer_id", res.Failure.Field)
		assert.Equal(t, []string{"Zyx SA"}, res.Failure.Candidates)
		assert.Equal(t, "otro@example.com", res.Failure.EmailLookup)
		require.NotNil(t, res.Failure.BestScore)
		assert.Less(t, *res.Failure.BestScore, 0.6)
		assert.NotEmpty(t, res.Failure.ClosestMatch)
		assert.Equal(t, 0.6, res.Failure.Threshold)
	})

	t.Run("no names", func(t *testing.T) {
		e := newExtractors(t, reply(extracttest.CustomerKey, `{"customer_names":[]}`))
		res, err := e.Customer(ctx, entry, b)
		require.NoError(t, err)
		require.NotNil(t, res.Failure)
		assert.Equal(t, entity.ReasonEmptyCandidate, res.Failure.Reason)
		assert.Nil(t, res.Failure.BestScore)
	})

	t.Run("model failure is an external call error", func(t *testing.T) {
		fake := extracttest.Replies{extracttest.CustomerKey: {Err: errors.New("503")}}.Fake()
		e := newExtractors(t, fake)
		_, err := e.Customer(ctx, entry, b)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrExternalCall))
		assert.Equal(t, 2, fake.Calls())
	})
}

func TestSKU(t *testing.T) {
	ctx := context.Background()
	b := referencetest.Bundle()

	e := newExtractors(t, reply(extracttest.SKUKey, `{"order_lines":[
		{"family":"nature","length":80,"width":140,"color":"blanco","quantity":"2"},
		{"family":"xyz","length":140,"width":80,"color":"blanco","quantity":1},
		{"family":"Nature","length":140,"width":80,"color":"purpura","quantity":1},
		{"family":"Nature","length":null,"width":80,"color":"Blanco","quantity":1},
		{"family":"Nature","length":1400,"width":80,"color":"Blanco","quantity":1},
		{"family":"Nature","length":90,"width":90,"color":"7016","quantity":3}
	]}`))
	res, err := e.SKU(ctx, entity.Entry{RawText: "pedido"}, b)
	require.NoError(t, err)
	require.Nil(t, res.Failure)
	require.Len(t, res.Lines, 6)

	assert.Equal(t, "NAT140080BLCO", res.Lines[0].SKU)
	assert.Equal(t, 2, res.Lines[0].Quantity)
	assert.Nil(t, res.Lines[0].Failure)
	assert.Equal(t, "Nature", res.Lines[0].Family.Desc)

	reasons := map[int]string{
		1: extract.ReasonFamilyNoMatch,
		2: extract.ReasonColorNoMatch,
		3: extract.ReasonMissingFields,
		4: extract.ReasonSKUConstruction,
	}
	for i, want := range reasons {
		line := res.Lines[i]
		assert.Empty(t, line.SKU, "line %d", i)
		require.NotNil(t, line.Failure, "line %d", i)
		assert.Equal(t, want, line.Failure.Reason, "line %d", i)
		assert.Equal(t, i+1, line.Failure.LineNo)
		assert.Equal(t, "sku", line.Failure.Field)
	}
	require.NotNil(t, res.Lines[1].Failure.BestScore)
	assert.Equal(t, "Nature", res.Lines[2].Family.Desc)

	assert.Equal(t, "NAT0900907016", res.Lines[5].SKU)
	assert.Equal(t, 3, res.Lines[5].Quantity)

	t.Run("no lines", func(t *testing.T) {
		e := newExtractors(t, reply(extracttest.SKUKey, `{"order_lines":[]}`))
		res, err := e.SKU(ctx, entity.Entry{RawText: "gracias"}, b)
		require.NoError(t, err)
		assert.Empty(t, res.Lines)
		require.NotNil(t, res.Failure)
		assert.Equal(t, extract.ReasonNoOrderLines, res.Failure.Reason)
	})

	t.Run("prompt lists the catalog", func(t *testing.T) {
		fake := reply(extracttest.SKUKey, `{"order_lines":[]}`)
		_, err := newExtractors(t, fake).SKU(ctx, entity.Entry{RawText: "x"}, b)
		require.NoError(t, err)
		assert.Contains(t, fake.Requests[0].Prompt, "- Gris Perla")
		assert.Contains(t, fake.Requests[0].Prompt, "- Premium")
	})
}

func strp(s string) *string { return &s }

func TestReference(t *testing.T) {
	fake := reply(extracttest.ReferenceKey, `{"reference_nos":[" 173082 ", "", null, "PO-7"]}`)
	got, err := newExtractors(t, fake).Reference(context.Background(),
		entity.Entry{RawText: "Ref. 173082"},
		extract.CustomerResult{ID: referencetest.FraileID, Name: "FRAILE Y NÚÑEZ"})
	require.NoError(t, err)
	assert.Equal(t, []*string{strp("173082"), nil, nil, strp("PO-7")}, got)
	assert.Contains(t, fake.Requests[0].Prompt, "(C001)")
}

func TestValves(t *testing.T) {
	ctx := context.Background()

	got, err := newExtractors(t, reply(extracttest.ValveKey,
		`{"valves":["Vertical valve","lateral","no",7]}`)).Valves(ctx, entity.Entry{RawText: "x"})
	require.NoError(t, err)
	assert.Equal(t, []constants.Valve{
		constants.ValveVertical, constants.ValveNone, constants.ValveNone, constants.ValveNone,
	}, got)

	got, err = newExtractors(t, reply(extracttest.ValveKey, `{"valves":"Yes"}`)).Valves(ctx, entity.Entry{RawText: "x"})
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Equal(t, []constants.Valve{constants.ValveYes, constants.ValveNone, constants.ValveNone},
		extract.FitValves([]constants.Valve{constants.ValveYes}, 3))
	assert.Equal(t, []constants.Valve{constants.ValveYes},
		extract.FitValves([]constants.Valve{constants.ValveYes, constants.ValveVertical}, 1))
	assert.Empty(t, extract.FitValves(nil, 0))
}

func TestAddress(t *testing.T) {
	ctx := context.Background()
	b := referencetest.Bundle()
	fraile := extract.CustomerResult{ID: referencetest.FraileID, Name: "FRAILE Y NÚÑEZ"}
	soria := extract.CustomerResult{ID: referencetest.SoriaID, Name: "MATERIALES DE CONSTRUCCION SORIA S.L."}
	entry := entity.Entry{RawText: "x"}

	t.Run("single known address is the fallback", func(t *testing.T) {
		e := newExtractors(t, reply(extracttest.AddressKey,
			`{"delivery_address":null,"telephone_number":" 600 123 123 ","contact_name":""}`))
		res, err := e.Address(ctx, entry, fraile, b)
		require.NoError(t, err)
		require.NotNil(t, res.Address)
		assert.Equal(t, "Calle Mayor 5, 28013, Madrid, Madrid", *res.Address)
		assert.Equal(t, extract.AddressFallback, res.Source)
		require.NotNil(t, res.Telephone)
		assert.Equal(t, "600 123 123", *res.Telephone)
		assert.Nil(t, res.Contact)
	})

	t.Run("no fallback with several addresses", func(t *testing.T) {
		e := newExtractors(t, reply(extracttest.AddressKey, extracttest.NoAddress))
		res, err := e.Address(ctx, entry, soria, b)
		require.NoError(t, err)
		assert.Nil(t, res.Address)
	})

	t.Run("extracted address snaps to a known one", func(t *testing.T) {
		e := newExtractors(t, reply(extracttest.AddressKey,
			`{"delivery_address":"Avda. de Valladolid 40, 42004 Soria","contact_name":"Luis"}`))
		res, err := e.Address(ctx, entry, soria, b)
		require.NoError(t, err)
		require.NotNil(t, res.Address)
		assert.Equal(t, "Avenida de Valladolid 40, 42004, Soria, Soria", *res.Address)
		assert.Equal(t, extract.AddressMatched, res.Source)
		assert.Equal(t, "Luis", *res.Contact)
	})

	t.Run("unknown address kept as written", func(t *testing.T) {
		e := newExtractors(t, reply(extracttest.AddressKey,
			`{"delivery_address":"  Calle Falsa 123, 44001 Teruel "}`))
		res, err := e.Address(ctx, entry, soria, b)
		require.NoError(t, err)
		assert.Equal(t, "Calle Falsa 123, 44001 Teruel", *res.Address)
		assert.Equal(t, extract.AddressExtracted, res.Source)
	})

	t.Run("unresolved customer has no known addresses", func(t *testing.T) {
		e := newExtractors(t, reply(extracttest.AddressKey, extracttest.NoAddress))
		res, err := e.Address(ctx, entry, extract.CustomerResult{}, b)
		require.NoError(t, err)
		assert.Nil(t, res.Address)
	})
}

func TestCPSD(t *testing.T) {
	e := newExtractors(t, reply(extracttest.CPSDKey,
		`{"cpsds":["15/03/2025","2025-04-01","mañana",null],"entry_id":" AAMkAGI2 "}`))
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	res, err := e.CPSD(context.Background(), entity.Entry{RawText: "x"}, now)
	require.NoError(t, err)
	assert.Equal(t, []*string{strp("2025-03-15"), strp("2025-04-01"), nil, nil}, res.Dates)
	assert.Equal(t, "AAMkAGI2", res.EntryID)
	require.NotNil(t, res.Failure)
	assert.Equal(t, entity.FailureInvalidFieldFormat, res.Failure.Kind)
	assert.Equal(t, []string{"mañana"}, res.Failure.Candidates)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-03-15", "2025-03-15", true},
		{"15/03/2025", "2025-03-15", true},
		{"5/3/2025", "2025-03-05", true},
		{"15-03-2025", "2025-03-15", true},
		{"15.03.2025", "2025-03-15", true},
		{"31/02/2025", "", false},
		{"next week", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := extract.NormalizeDate(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptions(t *testing.T) {
	ctx := context.Background()
	b := referencetest.Bundle()
	catalog := b.Catalog(0.6, nil)

	e := newExtractors(t, reply(extracttest.OptionsKey,
		`{"has_options":true,"color":"moka","quantity":null,"size":null,"type":null}`))
	opt, err := e.Options(ctx, entity.Entry{RawText: "x"}, b)
	require.NoError(t, err)
	assert.True(t, opt.HasOptions)
	assert.Equal(t, 1.0, opt.Quantity)

	sku, fail := extract.ResolveOption(catalog, opt, "Nature")
	assert.Nil(t, fail)
	assert.Equal(t, "OPT-NAT-MOKA", sku)

	sku, fail = extract.ResolveOption(catalog, extract.OptionsResult{HasOptions: true, Size: "80", Type: "rejilla", Quantity: 2}, "Premium")
	assert.Nil(t, fail)
	assert.Equal(t, "OPT-PRE-80-GRID-DEF", sku)

	_, fail = extract.ResolveOption(catalog, extract.OptionsResult{HasOptions: true, Quantity: 1}, "Neo")
	require.NotNil(t, fail)
	assert.Equal(t, "no option SKU found for family Neo", fail.Message)

	sku, fail = extract.ResolveOption(catalog, extract.OptionsResult{}, "Nature")
	assert.Empty(t, sku)
	assert.Nil(t, fail)

	none, err := newExtractors(t, reply(extracttest.OptionsKey, extracttest.NoOptions)).Options(ctx, entity.Entry{RawText: "x"}, b)
	require.NoError(t, err)
	assert.False(t, none.HasOptions)
}
