package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/oalbalushi/tendering-system/internal/command"
	"github.com/oalbalushi/tendering-system/internal/repository"
)

func isAdminCommand(body string) bool {
	return command.IsCommand(body)
}

// handleAdminCommand проверяет отправителя, разбирает команду и исполняет её.
// Любое несовпадение адреса даёт фиксированный отказ без дальнейших действий.
func (s *Service) handleAdminCommand(ctx context.Context, from, body string) error {
	if from != s.adminPhone {
		s.reply(ctx, from, msgAccessDenied)
		return nil
	}

	cmd, err := command.Parse(body)
	if err != nil {
		var usageErr *command.UsageError
		if errors.As(err, &usageErr) {
			s.reply(ctx, from, msgInvalidFormat(usageErr.Usage))
			return nil
		}
		return fmt.Errorf("parse command: %w", err)
	}

	switch c := cmd.(type) {
	case command.NewTender:
		return s.execNewTender(ctx, from, c)
	case command.ListTenders:
		return s.execListTenders(ctx, from)
	case command.ListBids:
		return s.execListBids(ctx, from, c)
	case command.Winner:
		return s.execWinner(ctx, from, c)
	default:
		s.reply(ctx, from, msgAdminHelp)
		return nil
	}
}

func (s *Service) execNewTender(ctx context.Context, from string, c command.NewTender) error {
	tender, results, err := s.CreateTender(ctx, CreateTenderInput{
		Title:       c.Title,
		Category:    c.Category,
		Quantity:    c.Quantity,
		Unit:        c.Unit,
		ClosingDate: c.ClosingDate,
		ClientPhone: from,
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			s.reply(ctx, from, msgInvalidFormat(command.UsageNewTender))
			return nil
		}
		return fmt.Errorf("create tender: %w", err)
	}

	s.logger.Info("tender created by admin",
		zap.String("tenderID", tender.TenderID),
		zap.Int("alerted", len(results)))

	s.reply(ctx, from, tenderCreatedMessage(tender))
	return nil
}

func (s *Service) execListTenders(ctx context.Context, from string) error {
	tenders, err := s.repo.ListTenders(ctx, digestLimit)
	if err != nil {
		return fmt.Errorf("list tenders: %w", err)
	}

	if len(tenders) == 0 {
		s.reply(ctx, from, msgNoTenders)
		return nil
	}

	s.reply(ctx, from, tendersDigest(tenders))
	return nil
}

func (s *Service) execListBids(ctx context.Context, from string, c command.ListBids) error {
	bids, err := s.ListBids(ctx, c.TenderID, digestLimit)
	if err != nil {
		return fmt.Errorf("list bids: %w", err)
	}

	if len(bids) == 0 {
		s.reply(ctx, from, msgNoBids)
		return nil
	}

	s.reply(ctx, from, bidsDigest(bids))
	return nil
}

func (s *Service) execWinner(ctx context.Context, from string, c command.Winner) error {
	bid, tender, err := s.SelectWinner(ctx, c.TenderID, c.BidID)
	if err != nil {
		if errors.Is(err, repository.ErrBidNotFound) || errors.Is(err, repository.ErrTenderNotFound) {
			s.reply(ctx, from, msgBidOrTenderNotFound)
			return nil
		}
		return fmt.Errorf("select winner: %w", err)
	}

	s.reply(ctx, from, winnerSelectedMessage(bid, tender))
	return nil
}
