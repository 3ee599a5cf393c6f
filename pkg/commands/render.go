package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/pledge/pkg/domain"
)

func rejoin(args []string) string {
	return strings.Join(args, " ")
}

// displayName resolves an ID through the chat client, falling back to the
// raw ID when the lookup fails. Reply text degrades, never the command.
func (r *Router) displayName(ctx context.Context, id string) string {
	info, err := r.chat.GetUserInfo(ctx, id)
	if err != nil || info.Name == "" {
		return id
	}
	return info.Name
}

// renderProposeErr maps validation failures to reply text. Returns "" for
// errors the caller should surface instead.
func renderProposeErr(err error) string {
	switch {
	case errors.Is(err, domain.ErrSelfProposal):
		return "You cannot send that to yourself."
	case errors.Is(err, domain.ErrInvalidTTL):
		return "That offer would expire before it was sent."
	default:
		return ""
	}
}

func (r *Router) renderPropose(ctx context.Context, res *domain.Result) string {
	switch res.Code {
	case domain.ResultCreated:
		p := res.Proposal
		responder := r.displayName(ctx, p.ResponderID)
		switch p.Kind {
		case domain.KindMarriage:
			var mp domain.MarriagePayload
			if err := domain.DecodePayload(p, &mp); err == nil && mp.Cost > 0 {
				return fmt.Sprintf("Proposal sent to %s with an offer of %d. They have until %s to answer.",
					responder, mp.Cost, p.ExpiresAt.Format("15:04:05"))
			}
			return fmt.Sprintf("Proposal sent to %s. They have until %s to answer.",
				responder, p.ExpiresAt.Format("15:04:05"))
		case domain.KindBroadcast:
			return fmt.Sprintf("Broadcast queued for approval by %s.", responder)
		case domain.KindConfirmAction:
			return fmt.Sprintf("Asked %s to confirm. Nothing happens until they do.", responder)
		}
		return "Request sent."
	case domain.ResultAlreadyPending:
		if p := res.Proposal; p != nil {
			return fmt.Sprintf("%s already has an offer waiting. Ask them to answer it first.",
				r.displayName(ctx, p.ResponderID))
		}
		return "They already have an offer waiting."
	default:
		return "Request sent."
	}
}

func (r *Router) renderRespond(ctx context.Context, res *domain.Result) string {
	switch res.Code {
	case domain.ResultAccepted:
		return r.renderAccepted(ctx, res.Proposal)
	case domain.ResultRejected:
		if p := res.Proposal; p != nil {
			return fmt.Sprintf("You turned down %s.", r.displayName(ctx, p.InitiatorID))
		}
		return "Offer declined."
	case domain.ResultExpired:
		return "Too late, that offer already expired."
	case domain.ResultAlreadyResolved:
		return "That offer was already settled."
	case domain.ResultNotFound:
		return "There is nothing waiting on your answer."
	case domain.ResultApplyFailed:
		return "Your answer was recorded but the follow-up failed. An operator will sort it out."
	default:
		return "Answer recorded."
	}
}

func (r *Router) renderAccepted(ctx context.Context, p *domain.Proposal) string {
	if p == nil {
		return "Accepted."
	}
	initiator := r.displayName(ctx, p.InitiatorID)
	switch p.Kind {
	case domain.KindMarriage:
		return fmt.Sprintf("Congratulations, you and %s are now married!", initiator)
	case domain.KindBroadcast:
		return "Broadcast approved and queued for delivery."
	case domain.KindConfirmAction:
		var ap domain.ActionPayload
		if err := domain.DecodePayload(p, &ap); err == nil && ap.Action == "divorce" {
			return fmt.Sprintf("The divorce from %s is done.", initiator)
		}
		return "Confirmed and applied."
	}
	return "Accepted."
}

func (r *Router) renderCancel(ctx context.Context, res *domain.Result) string {
	switch res.Code {
	case domain.ResultCancelled:
		if p := res.Proposal; p != nil {
			return fmt.Sprintf("Your offer to %s was withdrawn.", r.displayName(ctx, p.ResponderID))
		}
		return "Offer withdrawn."
	case domain.ResultAlreadyResolved:
		return "Too late to withdraw, that offer was already settled."
	case domain.ResultExpired:
		return "That offer already expired on its own."
	case domain.ResultNotFound:
		return "You have no open offer to that person."
	default:
		return "Done."
	}
}
