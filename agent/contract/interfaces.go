package contract

import "context"

type Classifier interface {
	Classify(ctx context.Context, history []Message) (Intent, error)
}

type Responder interface {
	Respond(ctx context.Context, req ResponderRequest) (string, error)
}

type EnquiryResponder interface {
	Answer(ctx context.Context, req EnquiryRequest) (string, error)
}

// Extractor returns the raw record text produced by the model. Parsing and
// repair are done by the caller.
type Extractor interface {
	Extract(ctx context.Context, history []Message) (string, error)
}

type Registry interface {
	Classifier() Classifier
	Greeter() Responder
	Enquirer() EnquiryResponder
	LeadAsker() Responder
	Extractor() Extractor
}

// Retriever searches the knowledge corpus. found is false for NO_RESULTS.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) (passage string, found bool, err error)
}

type LeadSink interface {
	Capture(ctx context.Context, rec LeadRecord) error
}

type Outbound interface {
	Deliver(ctx context.Context, to string, body string) error
}
