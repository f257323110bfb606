package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"samaj-census/internal/dialogue"
	"samaj-census/internal/domain"
	"samaj-census/internal/repository"
	"samaj-census/internal/store"

	"go.uber.org/zap"
)

const (
	savedErrorMessage  = "An error occurred while saving your information. Please try again later."
	deliveryErrMessage = "Failed to send response message"
)

// WhatsAppService 对话编排服务接口
// HandleInbound processes one inbound message end to end: session load,
// engine step, commit on confirmation, reply delivery.
type WhatsAppService interface {
	HandleInbound(ctx context.Context, from, body string) (reply string, delivered bool, err error)
}

type whatsAppService struct {
	engine   *dialogue.Engine
	sessions store.SessionStore
	repo     repository.CensusRepository
	sender   MessageSender
	logger   *zap.Logger

	// Striped locks give per-respondent atomic read-modify-write over the
	// session store. Different phone numbers never conflict beyond stripe
	// collisions.
	locks [64]sync.Mutex
}

// NewWhatsAppService 创建 WhatsAppService 实例
func NewWhatsAppService(sessions store.SessionStore, repo repository.CensusRepository, sender MessageSender, logger *zap.Logger) WhatsAppService {
	return &whatsAppService{
		engine:   dialogue.NewEngine(),
		sessions: sessions,
		repo:     repo,
		sender:   sender,
		logger:   logger,
	}
}

func (s *whatsAppService) lockFor(phone string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}

func (s *whatsAppService) HandleInbound(ctx context.Context, from, body string) (string, bool, error) {
	s.logger.Info("Processing inbound message",
		zap.String("from", from),
		zap.Int("body_len", len(body)),
	)

	mu := s.lockFor(from)
	mu.Lock()
	reply, err := s.step(ctx, from, body)
	mu.Unlock()
	if err != nil {
		return "", false, err
	}

	if sendErr := s.sender.Send(ctx, from, reply); sendErr != nil {
		// Business state is already saved; only delivery failed.
		s.logger.Error("Failed to deliver reply",
			zap.String("to", from),
			zap.Error(sendErr),
		)
		return deliveryErrMessage, false, nil
	}
	return reply, true, nil
}

// step runs the engine against the stored session and applies the outcome:
// persist/destroy the session and, on confirmation, commit the answer set.
func (s *whatsAppService) step(ctx context.Context, from, body string) (string, error) {
	sess, err := s.sessions.Get(ctx, from)
	if err != nil && err != store.ErrSessionNotFound {
		return "", fmt.Errorf("failed to load session: %w", err)
	}

	out := s.engine.Handle(sess, from, body)

	if out.Commit {
		return s.commit(ctx, out.Session)
	}

	if out.Session != nil {
		if err := s.sessions.Put(ctx, out.Session); err != nil {
			return "", fmt.Errorf("failed to save session: %w", err)
		}
	} else if sess != nil {
		// Engine ended the session without a commit (should not happen in
		// the current transition table, but keep the store consistent).
		if err := s.sessions.Delete(ctx, from); err != nil {
			return "", fmt.Errorf("failed to delete session: %w", err)
		}
	}
	return out.Reply, nil
}

// commit hands the confirmed answers to the persistence adapter. Business
// errors and storage faults both preserve the session so the respondent can
// correct or retry.
func (s *whatsAppService) commit(ctx context.Context, sess *domain.Session) (string, error) {
	member, err := s.repo.CommitMember(ctx, sess.Answers, sess.Role)
	if err != nil {
		if be, ok := domain.AsBusinessError(err); ok {
			s.logger.Warn("Commit rejected by business rule",
				zap.String("phone", sess.Phone),
				zap.String("code", be.Code),
			)
			return be.Message + "\nReply 'Yes' to try again or 'No' to correct a field.", nil
		}
		s.logger.Error("Failed to save member",
			zap.String("phone", sess.Phone),
			zap.Error(err),
		)
		return savedErrorMessage, nil
	}

	if err := s.sessions.Delete(ctx, sess.Phone); err != nil {
		// The member row is saved; a stale session is the lesser problem.
		s.logger.Warn("Failed to delete completed session",
			zap.String("phone", sess.Phone),
			zap.Error(err),
		)
	}

	s.logger.Info("Completed data collection",
		zap.String("phone", sess.Phone),
		zap.String("member_id", member.MemberID),
		zap.String("family_role", member.FamilyRole),
	)
	return dialogue.ThankYouMessage(member.FamilyRole), nil
}

// NormalizePhone strips the transport prefix and guarantees a leading "+".
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	if s != "" && !strings.HasPrefix(s, "+") {
		s = "+" + s
	}
	return s
}
