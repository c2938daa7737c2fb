package homework

import "fmt"

// ParseItem extracts a homework from a decoded item. It reports every missing
// subkey at once and rejects statuses that are not in Verdicts.
func ParseItem(raw any) (Item, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Item{}, &SchemaError{Reason: fmt.Sprintf("unexpected homework type %s", typeName(raw))}
	}

	var missing []string
	for _, k := range []string{KeyStatus, KeyName} {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return Item{}, &SchemaError{Reason: "homework is missing keys", Keys: missing}
	}

	name, ok := m[KeyName].(string)
	if !ok || name == "" {
		return Item{}, &SchemaError{Reason: fmt.Sprintf("invalid homework name %v", m[KeyName]), Keys: []string{KeyName}}
	}
	status, ok := m[KeyStatus].(string)
	if !ok {
		return Item{}, &SchemaError{Reason: fmt.Sprintf("invalid homework status %v", m[KeyStatus]), Keys: []string{KeyStatus}}
	}
	if _, ok := Verdicts[status]; !ok {
		return Item{}, &SchemaError{Reason: fmt.Sprintf("invalid homework status %q", status), Keys: []string{KeyStatus}}
	}
	return Item{Name: name, Status: status}, nil
}

// Tracker remembers the last observed status per homework name.
// It is not safe for concurrent use; the watcher owns it.
type Tracker struct {
	verdicts map[string]string
	last     map[string]string
}

func NewTracker() *Tracker {
	return &Tracker{verdicts: Verdicts, last: map[string]string{}}
}

// Observe records raw and returns the notification text when its status
// differs from the last one seen for the same name. changed is false when
// nothing needs to be sent.
func (t *Tracker) Observe(raw any) (msg string, changed bool, err error) {
	it, err := ParseItem(raw)
	if err != nil {
		return "", false, err
	}
	if prev, ok := t.last[it.Name]; ok && prev == it.Status {
		return "", false, nil
	}
	t.last[it.Name] = it.Status
	return ChangeMessage(it.Name, t.verdicts[it.Status]), true, nil
}

// Last returns the stored status for name.
func (t *Tracker) Last(name string) (string, bool) {
	s, ok := t.last[name]
	return s, ok
}

// Len returns the number of tracked names.
func (t *Tracker) Len() int { return len(t.last) }
