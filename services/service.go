// Package services holds the content rules of the blog: who may read or change
// posts, comments, likes, tags, statuses and accounts, and how those changes
// are applied atomically.
package services

import (
	"go.uber.org/zap"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/utils"
)

// Service bundles the collaborators every operation needs. The principal is
// always passed explicitly to each operation.
type Service struct {
	store     *Store
	hasher    utils.PasswordHasher
	tokens    *utils.TokenIssuer
	blacklist *utils.TokenBlacklist
	pages     config.PaginationSection
	log       *zap.Logger
}

// Options carries the optional collaborators of New.
type Options struct {
	Hasher     utils.PasswordHasher
	Tokens     *utils.TokenIssuer
	Blacklist  *utils.TokenBlacklist
	Pagination config.PaginationSection
	Logger     *zap.Logger
}

func New(store *Store, opts Options) *Service {
	if opts.Hasher == nil {
		opts.Hasher = utils.BcryptHasher{}
	}
	if opts.Blacklist == nil {
		opts.Blacklist = utils.NewTokenBlacklist(nil)
	}
	if opts.Pagination.DefaultLimit == 0 {
		opts.Pagination.DefaultLimit = 10
	}
	if opts.Pagination.MaxLimit == 0 {
		opts.Pagination.MaxLimit = 100
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		hasher:    opts.Hasher,
		tokens:    opts.Tokens,
		blacklist: opts.Blacklist,
		pages:     opts.Pagination,
		log:       opts.Logger,
	}
}

// Store exposes the transaction boundary, e.g. for health checks.
func (s *Service) Store() *Store { return s.store }
