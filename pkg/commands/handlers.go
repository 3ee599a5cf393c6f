package commands

import (
	"context"
	"strconv"

	"github.com/aretw0/pledge/pkg/domain"
)

func (r *Router) marry(ctx context.Context, senderID string, args []string) (string, error) {
	if len(args) == 0 {
		return "Usage: " + r.prefix + "marry @user [cost]", nil
	}
	responderID := mention(args[0])

	cost := int64(0)
	if len(args) > 1 {
		parsed, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || parsed < 0 {
			return "The cost has to be a whole, non-negative number.", nil
		}
		cost = parsed
	}

	acct, err := r.accounts.Get(ctx, senderID)
	if err != nil {
		return "", err
	}
	if acct.Partner != "" {
		return "You are already married. " + r.prefix + "divorce first.", nil
	}
	if acct.Balance < cost {
		return "You cannot afford that offer.", nil
	}

	payload, err := domain.EncodePayload(domain.MarriagePayload{Cost: cost})
	if err != nil {
		return "", err
	}
	res, err := r.engine.Propose(ctx, senderID, responderID, domain.KindMarriage, payload, r.ttl)
	if err != nil {
		if msg := renderProposeErr(err); msg != "" {
			return msg, nil
		}
		return "", err
	}
	return r.renderPropose(ctx, res), nil
}

func (r *Router) respond(ctx context.Context, senderID string, args []string, decision domain.Decision) (string, error) {
	initiatorID, err := r.pendingInitiator(ctx, senderID, args)
	if err != nil {
		return "", err
	}
	if initiatorID == "" {
		return "There is nothing waiting on your answer.", nil
	}
	res, err := r.engine.Respond(ctx, senderID, initiatorID, decision)
	if err != nil {
		return "", err
	}
	return r.renderRespond(ctx, res), nil
}

func (r *Router) divorce(ctx context.Context, senderID string) (string, error) {
	acct, err := r.accounts.Get(ctx, senderID)
	if err != nil {
		return "", err
	}
	if acct.Partner == "" {
		return "You are not married to anyone.", nil
	}

	payload, err := domain.EncodePayload(domain.ActionPayload{Action: "divorce", Target: acct.Partner})
	if err != nil {
		return "", err
	}
	res, err := r.engine.Propose(ctx, senderID, acct.Partner, domain.KindConfirmAction, payload, r.ttl)
	if err != nil {
		if msg := renderProposeErr(err); msg != "" {
			return msg, nil
		}
		return "", err
	}
	return r.renderPropose(ctx, res), nil
}

func (r *Router) broadcast(ctx context.Context, senderID string, args []string) (string, error) {
	if r.approverID == "" {
		return "Broadcasts are not enabled here.", nil
	}
	if len(args) == 0 {
		return "Usage: " + r.prefix + "broadcast <message>", nil
	}
	body := rejoin(args)

	payload, err := domain.EncodePayload(domain.BroadcastPayload{Body: body, Audience: "all"})
	if err != nil {
		return "", err
	}
	res, err := r.engine.Propose(ctx, senderID, r.approverID, domain.KindBroadcast, payload, r.ttl)
	if err != nil {
		if msg := renderProposeErr(err); msg != "" {
			return msg, nil
		}
		return "", err
	}
	return r.renderPropose(ctx, res), nil
}

func (r *Router) cancel(ctx context.Context, senderID string, args []string) (string, error) {
	if len(args) == 0 {
		return "Usage: " + r.prefix + "cancel @user", nil
	}
	res, err := r.engine.Cancel(ctx, senderID, mention(args[0]))
	if err != nil {
		return "", err
	}
	return r.renderCancel(ctx, res), nil
}
