package grouping

// FlavorFunc derives the ordered flavor keys of an event, most specific first.
type FlavorFunc func(Event) []string

// DefaultFlavorKeys returns ["platform:<platform>", "platform:generic"], or just
// the generic flavor when the event carries no platform.
func DefaultFlavorKeys(e Event) []string {
	if p := platformOf(e); p != "" && "platform:"+p != GenericFlavor {
		return []string{"platform:" + p, GenericFlavor}
	}
	return []string{GenericFlavor}
}

func platformOf(e Event) string {
	p, _ := e["platform"].(string)
	return p
}

// ApplicableFlavor returns the first of flavorKeys that the descriptor supports
// while its predicate accepts e. The predicate is checked per supported key, so a
// rejecting predicate means no key ever matches.
func (d *Descriptor) ApplicableFlavor(e Event, flavorKeys []string) (string, bool) {
	for _, key := range flavorKeys {
		if d.SupportsFlavor(key) && d.IsApplicable(e) {
			return key, true
		}
	}
	return "", false
}

// Assignment is one strategy version chosen to run under a flavor key.
type Assignment struct {
	Identifier string
	Version    string
	FlavorKey  string
}

// FullID returns "identifier:version".
func (a Assignment) FullID() string { return a.Identifier + ":" + a.Version }

// Applicable scans every registered descriptor and returns those that apply to e,
// each with the flavor key it matched under. Results follow registration order.
func (r *Registry) Applicable(e Event, flavorKeys []string) []Assignment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Assignment
	for _, k := range r.order {
		d := r.descriptors[k]
		if key, ok := d.ApplicableFlavor(e, flavorKeys); ok {
			out = append(out, Assignment{
				Identifier: d.Identifier,
				Version:    d.Version,
				FlavorKey:  key,
			})
		}
	}
	return out
}
