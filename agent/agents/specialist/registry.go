package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	llmx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/llm"
	promptx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/prompt"
)

const defaultBrand = "AutoStream"

type Options struct {
	Brand string
	// ClassifierWindow bounds the history the classifier sees; 0 means all.
	ClassifierWindow int
}

// Models holds one chat model per role.
type Models struct {
	Classifier einomodel.BaseChatModel
	Responder  einomodel.BaseChatModel
	Extractor  einomodel.BaseChatModel
}

type registryImpl struct {
	classifier contractx.Classifier
	greeter    contractx.Responder
	enquirer   contractx.EnquiryResponder
	leadAsker  contractx.Responder
	extractor  contractx.Extractor
}

func (r *registryImpl) Classifier() contractx.Classifier {
	return r.classifier
}

func (r *registryImpl) Greeter() contractx.Responder {
	return r.greeter
}

func (r *registryImpl) Enquirer() contractx.EnquiryResponder {
	return r.enquirer
}

func (r *registryImpl) LeadAsker() contractx.Responder {
	return r.leadAsker
}

func (r *registryImpl) Extractor() contractx.Extractor {
	return r.extractor
}

func NewRegistry(ctx context.Context, cfg llmx.Config, opts Options) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var models Models
	var err error
	if models.Classifier, err = cfg.NewChatModel(ctx, contractx.AgentTypeClassifier); err != nil {
		return nil, fmt.Errorf("%w: create classifier model: %v", contractx.ErrCapabilityUnavailable, err)
	}
	if models.Responder, err = cfg.NewChatModel(ctx, contractx.AgentTypeResponder); err != nil {
		return nil, fmt.Errorf("%w: create responder model: %v", contractx.ErrCapabilityUnavailable, err)
	}
	if models.Extractor, err = cfg.NewChatModel(ctx, contractx.AgentTypeExtractor); err != nil {
		return nil, fmt.Errorf("%w: create extractor model: %v", contractx.ErrCapabilityUnavailable, err)
	}

	return NewRegistryWithModels(ctx, models, promptx.LoadPromptSet(), opts)
}

// NewRegistryWithModels wires the specialists onto caller-supplied models.
func NewRegistryWithModels(ctx context.Context, models Models, prompts promptx.PromptSet, opts Options) (contractx.Registry, error) {
	if err := prompts.Validate(); err != nil {
		return nil, err
	}
	brand := strings.TrimSpace(opts.Brand)
	if brand == "" {
		brand = defaultBrand
	}

	classifier, err := newClassifier(ctx, models.Classifier, prompts.Classifier, brand, opts.ClassifierWindow)
	if err != nil {
		return nil, err
	}
	greeter, err := newGreeter(ctx, models.Responder, prompts.Greeting, brand)
	if err != nil {
		return nil, err
	}
	enquirer, err := newEnquirer(ctx, models.Responder, prompts.Enquiry, brand)
	if err != nil {
		return nil, err
	}
	leadAsker, err := newLeadAsker(ctx, models.Responder, prompts.LeadAsk, brand)
	if err != nil {
		return nil, err
	}
	extractor, err := newExtractor(ctx, models.Extractor, prompts.LeadExtract, brand)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		classifier: classifier,
		greeter:    greeter,
		enquirer:   enquirer,
		leadAsker:  leadAsker,
		extractor:  extractor,
	}, nil
}
