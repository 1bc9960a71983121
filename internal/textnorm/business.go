package textnorm

import (
	"sort"
	"strings"
)

// businessSynonyms folds business-type words onto one canonical term.
var businessSynonyms = map[string]string{
	"almacenes":      "materiales",
	"almacen":        "materiales",
	"suministros":    "materiales",
	"distribuciones": "distribuidor",
	"distribuidora":  "distribuidor",
	"construcciones": "construccion",
	"comercial":      "comercio",
}

// legalForms maps a legal-entity suffix, with its dots removed, to its short form.
var legalForms = map[string]string{
	"sl":  "sl",
	"slu": "sl",
	"sll": "sl",
	"sa":  "sa",
	"sc":  "sc",
}

var businessKeywords = []string{
	"almacenes", "almacen", "suministros", "distribuciones", "distribuidora",
	"construcciones", "comercial", "materiales", "distribuidor", "construccion", "comercio",
}

var buyingGroupKeywords = []string{"gamma", "gremio", "grupo", "cadena", "asociacion"}

// gendered given names and their counterpart
var genderedNames = map[string]string{
	"antonio":   "antonia",
	"francisco": "francisca",
	"jose":      "josefa",
	"juan":      "juana",
	"carlos":    "carla",
	"daniel":    "daniela",
	"pablo":     "paula",
	"angel":     "angela",
	"manuel":    "manuela",
	"andres":    "andrea",
	"mario":     "maria",
	"alejandro": "alejandra",
	"roberto":   "roberta",
	"alberto":   "alberta",
	"fernando":  "fernanda",
	"luis":      "luisa",
	"miguel":    "miguela",
	"rafael":    "rafaela",
	"sergio":    "sergia",
	"diego":     "diega",
}

var givenNames = toSet(
	"maria", "jose", "antonio", "francisco", "juan", "manuel", "david",
	"jesus", "javier", "daniel", "carlos", "miguel", "rafael", "pedro",
	"angel", "alejandro", "fernando", "pablo", "sergio", "jorge", "luis",
	"antonia", "ana", "carmen", "dolores", "isabel", "pilar", "josefa",
	"francisca", "rosa", "teresa", "mercedes", "cristina", "laura", "marta",
	"paula", "lucia", "andrea", "sara", "elena", "patricia", "raquel",
)

var surnames = toSet(
	"garcia", "rodriguez", "martinez", "lopez", "gonzalez", "hernandez",
	"perez", "sanchez", "ramirez", "torres", "flores", "rivera", "gomez",
	"diaz", "cruz", "morales", "reyes", "gutierrez", "ortiz", "chavez",
	"ruiz", "alvarez", "castillo", "jimenez", "moreno", "romero", "vargas",
	"fernandez", "suarez", "ramos", "vazquez", "mendez", "castro", "rojas",
	"barroso", "sevilla", "navarro", "medina", "aguilar", "cortes", "silva",
)

func init() {
	for k, v := range genderedNames {
		genderedNames[v] = k
	}
}

func toSet(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

// Business returns the canonical form of a business name:
//
//	"Almacenes de Construcción Soria Gamma, S.L." -> "materiales de construccion soria gamma sl"
func Business(text string) string {
	tokens := strings.Fields(strings.ReplaceAll(Normalize(text), ",", " "))
	for i, tok := range tokens {
		if syn, ok := businessSynonyms[tok]; ok {
			tokens[i] = syn
			continue
		}
		if form, ok := legalForm(tok); ok {
			tokens[i] = form
		}
	}
	return strings.Join(tokens, " ")
}

func legalForm(token string) (string, bool) {
	form, ok := legalForms[strings.ReplaceAll(token, ".", "")]
	return form, ok
}

// IsPersonal reports whether text looks like a person's name rather than a company:
// no legal suffix, at most six tokens and no business keyword.
func IsPersonal(text string) bool {
	clean := Normalize(text)
	tokens := strings.Fields(strings.ReplaceAll(clean, ",", " "))
	for _, tok := range tokens {
		if _, ok := legalForm(tok); ok {
			return false
		}
	}
	if len(tokens) > 6 {
		return false
	}
	for _, kw := range businessKeywords {
		if strings.Contains(clean, kw) {
			return false
		}
	}
	return true
}

// Personal folds gendered given names onto one variant and returns the unique
// tokens in sorted order, so word order does not matter.
func Personal(text string) string {
	tokens := strings.Fields(Normalize(text))
	for i, tok := range tokens {
		if other, ok := genderedNames[tok]; ok && other < tok {
			tokens[i] = other
		}
	}
	sort.Strings(tokens)
	out := tokens[:0]
	for _, tok := range tokens {
		if len(out) > 0 && out[len(out)-1] == tok {
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// BuyingGroupKeywords returns the buying-group words present in text, in a fixed order.
func BuyingGroupKeywords(text string) []string {
	tokens := toSet(strings.Fields(strings.ReplaceAll(Normalize(text), ",", " "))...)
	var found []string
	for _, kw := range buyingGroupKeywords {
		if _, ok := tokens[kw]; ok {
			found = append(found, kw)
		}
	}
	return found
}

// IsGivenName reports whether token is a common Spanish given name.
func IsGivenName(token string) bool {
	_, ok := givenNames[token]
	return ok
}

// IsSurname reports whether token is a common Spanish surname.
func IsSurname(token string) bool {
	_, ok := surnames[token]
	return ok
}
