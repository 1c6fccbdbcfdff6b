package memory

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/terraskye/esdb"
)

// Server defaults for filtered reads.
const (
	defaultMaxSearchWindow              = 32
	defaultCheckpointIntervalMultiplier = 1
)

type matcher struct {
	filter *esdb.SubscriptionFilter
	regex  *regexp.Regexp

	// interval is the number of scanned events between checkpoints; zero
	// when the read is not filtered.
	interval int
}

func newMatcher(option esdb.FilterOption) (*matcher, error) {
	filter, ok := option.(*esdb.SubscriptionFilter)
	if !ok || filter == nil {
		return &matcher{}, nil
	}

	m := &matcher{filter: filter}
	if filter.Regex != "" {
		regex, err := regexp.Compile(filter.Regex)
		if err != nil {
			return nil, &esdb.InvalidArgumentError{Name: "filter", Reason: fmt.Sprintf("bad regex: %v", err)}
		}
		m.regex = regex
	}

	window := int(filter.MaxSearchWindow)
	if window == 0 {
		window = defaultMaxSearchWindow
	}
	multiplier := int(filter.CheckpointIntervalMultiplier)
	if multiplier == 0 {
		multiplier = defaultCheckpointIntervalMultiplier
	}
	m.interval = window * multiplier

	return m, nil
}

func (m *matcher) match(event *esdb.RecordedEvent) bool {
	if m.filter == nil {
		return true
	}

	subject := event.StreamIdentifier.String()
	if m.filter.Type == esdb.EventFilter {
		subject = event.Metadata[esdb.MetadataType]
	}

	if m.regex != nil {
		return m.regex.MatchString(subject)
	}
	for _, prefix := range m.filter.Prefixes {
		if strings.HasPrefix(subject, prefix) {
			return true
		}
	}
	return false
}
