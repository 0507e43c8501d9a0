package usecase

import (
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/config"
	"github.com/secmon-lab/collectdesk/pkg/service/slack"
)

type UseCases struct {
	repo          interfaces.Repository
	feed          interfaces.ChangeFeed
	storage       interfaces.DocumentStorage
	deskConfig    *config.DeskConfig
	slackService  slack.Service
	notifyChannel string

	Case         *CaseUseCase
	Action       *ActionUseCase
	Conversation *ConversationUseCase
	Intake       *IntakeUseCase
	Reference    *ReferenceUseCase
	Auth         AuthUseCaseInterface
}

type Option func(*UseCases)

// WithChangeFeed enables the subscription operations
func WithChangeFeed(feed interfaces.ChangeFeed) Option {
	return func(uc *UseCases) {
		uc.feed = feed
	}
}

// WithDocumentStorage sets where intake documents are uploaded
func WithDocumentStorage(storage interfaces.DocumentStorage) Option {
	return func(uc *UseCases) {
		uc.storage = storage
	}
}

func WithDeskConfig(cfg *config.DeskConfig) Option {
	return func(uc *UseCases) {
		uc.deskConfig = cfg
	}
}

// WithSlackNotifier posts a notification to channelID for every logged action
func WithSlackNotifier(svc slack.Service, channelID string) Option {
	return func(uc *UseCases) {
		uc.slackService = svc
		uc.notifyChannel = channelID
	}
}

func WithAuth(auth AuthUseCaseInterface) Option {
	return func(uc *UseCases) {
		uc.Auth = auth
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo: repo,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.deskConfig == nil {
		uc.deskConfig = config.Default()
	}

	uc.Case = NewCaseUseCase(repo, uc.deskConfig)
	uc.Action = NewActionUseCase(repo, uc.slackService, uc.notifyChannel)
	uc.Conversation = NewConversationUseCase(repo, uc.feed)
	uc.Intake = NewIntakeUseCase(repo, uc.storage, uc.deskConfig)
	uc.Reference = NewReferenceUseCase(repo, uc.deskConfig)

	return uc
}

// DeskConfig returns the effective policy configuration
func (uc *UseCases) DeskConfig() *config.DeskConfig {
	return uc.deskConfig
}
