package handlers

import (
	"context"
	"errors"

	"golang.org/x/text/language"

	"github.com/jmylchreest/vincheck-api/internal/chain"
	"github.com/jmylchreest/vincheck-api/internal/llm"
	"github.com/jmylchreest/vincheck-api/internal/lookup"
	"github.com/jmylchreest/vincheck-api/internal/service"
)

// Message identifies a user-facing error text.
type Message string

const (
	MsgIdentifierNotFound Message = "identifier_not_found"
	MsgVehicleNotFound    Message = "vehicle_not_found"
	MsgUpstreamNoResponse Message = "upstream_no_response"
	MsgAnalysisDisabled   Message = "analysis_disabled"
	MsgBackendUnavailable Message = "backend_unavailable"
	MsgAnalysisFailed     Message = "analysis_failed"
	MsgUnreadableAnswer   Message = "unreadable_answer"
	MsgEmptyListing       Message = "empty_listing"
	MsgTimeout            Message = "timeout"
	MsgRateLimited        Message = "rate_limited"
	MsgInternal           Message = "internal"
)

// Georgian is the default; English is served when the caller prefers it.
var supportedLanguages = []language.Tag{language.Georgian, language.English}

var languageMatcher = language.NewMatcher(supportedLanguages)

var catalog = map[language.Tag]map[Message]string{
	language.Georgian: {
		MsgIdentifierNotFound: "VIN კოდი ან ლოტის ნომერი ვერ ამოვიცანი",
		MsgVehicleNotFound:    "მანქანა ბაზაში ვერ მოიძებნა 🤷‍♂️",
		MsgUpstreamNoResponse: "საიტმა არ გვიპასუხა",
		MsgAnalysisDisabled:   "ანალიზი მიუწვდომელია: AI გასაღები არ არის მითითებული",
		MsgBackendUnavailable: "AI სერვისი დროებით მიუწვდომელია",
		MsgAnalysisFailed:     "ანალიზი ვერ მოხერხდა, სცადეთ თავიდან",
		MsgUnreadableAnswer:   "AI-მ გაუგებარი პასუხი დააბრუნა, სცადეთ თავიდან",
		MsgEmptyListing:       "განცხადების ტექსტი ცარიელია",
		MsgTimeout:            "მოთხოვნის დრო ამოიწურა",
		MsgRateLimited:        "ძალიან ბევრი მოთხოვნა, სცადეთ მოგვიანებით",
		MsgInternal:           "შიდა შეცდომა",
	},
	language.English: {
		MsgIdentifierNotFound: "Could not find a VIN or lot number in the input",
		MsgVehicleNotFound:    "Vehicle not found in any source",
		MsgUpstreamNoResponse: "The source sites did not respond",
		MsgAnalysisDisabled:   "Analysis is unavailable: no AI credential is configured",
		MsgBackendUnavailable: "The AI service is temporarily unavailable",
		MsgAnalysisFailed:     "Analysis failed, please try again",
		MsgUnreadableAnswer:   "The AI returned an unreadable answer, please try again",
		MsgEmptyListing:       "Listing text is empty",
		MsgTimeout:            "The request timed out",
		MsgRateLimited:        "Too many requests, please try again later",
		MsgInternal:           "Internal error",
	},
}

// Localize returns the text of msg in the best language for an
// Accept-Language header value.
func Localize(acceptLanguage string, msg Message) string {
	lang := language.Georgian
	if acceptLanguage != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil && len(tags) > 0 {
			_, idx, conf := languageMatcher.Match(tags...)
			if conf != language.No {
				lang = supportedLanguages[idx]
			}
		}
	}
	if text, ok := catalog[lang][msg]; ok {
		return text
	}
	return catalog[language.Georgian][MsgInternal]
}

// MessageFor maps an operation error to its user-facing message.
func MessageFor(err error) Message {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return MsgTimeout
	case errors.Is(err, lookup.ErrIdentifierNotFound):
		return MsgIdentifierNotFound
	case errors.Is(err, lookup.ErrAllSourcesExhausted):
		if onlyUpstreamFailures(err) {
			return MsgUpstreamNoResponse
		}
		return MsgVehicleNotFound
	case errors.Is(err, llm.ErrNotConfigured):
		return MsgAnalysisDisabled
	case errors.Is(err, llm.ErrBackendUnavailable):
		return MsgBackendUnavailable
	case errors.Is(err, llm.ErrPayloadParse):
		return MsgUnreadableAnswer
	case errors.Is(err, llm.ErrBackendInvocationFailed):
		return MsgAnalysisFailed
	case errors.Is(err, service.ErrEmptyListing):
		return MsgEmptyListing
	default:
		return MsgInternal
	}
}

// onlyUpstreamFailures reports whether no source cleanly answered "not found":
// every miss was a block or a transport error.
func onlyUpstreamFailures(err error) bool {
	var exhausted *chain.ExhaustedError
	if !errors.As(err, &exhausted) || len(exhausted.Misses) == 0 {
		return false
	}
	return !exhausted.HasKind(lookup.MissNotFound)
}
