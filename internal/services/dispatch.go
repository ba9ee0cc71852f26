package services

import (
	"context"
	"time"
)

// Operation names every entry point of the engine.
type Operation string

const (
	OpSubmit              Operation = "submit"
	OpApprove             Operation = "approve"
	OpReject              Operation = "reject"
	OpProposeEdit         Operation = "propose_edit"
	OpApproveEdit         Operation = "approve_edit"
	OpRejectEdit          Operation = "reject_edit"
	OpRequestDeletion     Operation = "request_deletion"
	OpApproveDeletion     Operation = "approve_deletion"
	OpRejectDeletion      Operation = "reject_deletion"
	OpChangeReportStatus  Operation = "change_report_status"
	OpCastVote            Operation = "cast_vote"
	OpFlagPoint           Operation = "flag_point"
	OpResolveReports      Operation = "resolve_reports"
	OpBan                 Operation = "ban"
	OpUnban               Operation = "unban"
	OpToggleRestriction   Operation = "toggle_restriction"
	OpSetQuota            Operation = "set_quota"
	OpResetQuotaToDefault Operation = "reset_quota_to_default"
	OpSetPhotoLimit       Operation = "set_photo_limit"
	OpResetPhotoUsage     Operation = "reset_photo_usage"
	OpResetPhotoLimit     Operation = "reset_photo_limit"
	OpConsumePhotoBytes   Operation = "consume_photo_bytes"
	OpEditAndResolve      Operation = "edit_and_resolve"
	OpPurgeExpired        Operation = "purge_expired"
	OpRunMaintenance      Operation = "run_maintenance"

	OpCheckRestriction Operation = "check_restriction"
	OpGetRestrictions  Operation = "get_restrictions"
	OpGetDailyLimits   Operation = "get_daily_limits"
	OpGetPoint         Operation = "get_point"
	OpListPoints       Operation = "list_points"
	OpPointHistory     Operation = "point_history"
	OpModerationQueue  Operation = "moderation_queue"
	OpActivityLog      Operation = "activity_log"
)

// Request is a typed parameter bag bound to exactly one Operation.
type Request interface {
	Operation() Operation
}

func (SubmitRequest) Operation() Operation             { return OpSubmit }
func (ApproveRequest) Operation() Operation            { return OpApprove }
func (RejectRequest) Operation() Operation             { return OpReject }
func (ProposeEditRequest) Operation() Operation        { return OpProposeEdit }
func (ApproveEditRequest) Operation() Operation        { return OpApproveEdit }
func (RejectEditRequest) Operation() Operation         { return OpRejectEdit }
func (RequestDeletionRequest) Operation() Operation    { return OpRequestDeletion }
func (ApproveDeletionRequest) Operation() Operation    { return OpApproveDeletion }
func (RejectDeletionRequest) Operation() Operation     { return OpRejectDeletion }
func (ChangeReportStatusRequest) Operation() Operation { return OpChangeReportStatus }
func (CastVoteRequest) Operation() Operation           { return OpCastVote }
func (FlagPointRequest) Operation() Operation          { return OpFlagPoint }
func (ResolveReportsRequest) Operation() Operation     { return OpResolveReports }
func (BanRequest) Operation() Operation                { return OpBan }
func (UnbanRequest) Operation() Operation              { return OpUnban }
func (ToggleRestrictionRequest) Operation() Operation  { return OpToggleRestriction }
func (SetQuotaRequest) Operation() Operation           { return OpSetQuota }
func (ResetQuotaRequest) Operation() Operation         { return OpResetQuotaToDefault }
func (SetPhotoLimitRequest) Operation() Operation      { return OpSetPhotoLimit }
func (ResetPhotoUsageRequest) Operation() Operation    { return OpResetPhotoUsage }
func (ResetPhotoLimitRequest) Operation() Operation    { return OpResetPhotoLimit }
func (ConsumePhotoBytesRequest) Operation() Operation  { return OpConsumePhotoBytes }
func (EditAndResolveRequest) Operation() Operation     { return OpEditAndResolve }
func (PurgeExpiredRequest) Operation() Operation       { return OpPurgeExpired }
func (RunMaintenanceRequest) Operation() Operation     { return OpRunMaintenance }
func (CheckRestrictionRequest) Operation() Operation   { return OpCheckRestriction }
func (RestrictionsRequest) Operation() Operation       { return OpGetRestrictions }
func (DailyLimitsRequest) Operation() Operation        { return OpGetDailyLimits }
func (GetPointRequest) Operation() Operation           { return OpGetPoint }
func (ListPointsRequest) Operation() Operation         { return OpListPoints }
func (PointHistoryRequest) Operation() Operation       { return OpPointHistory }
func (ModerationQueueRequest) Operation() Operation    { return OpModerationQueue }
func (ActivityLogRequest) Operation() Operation        { return OpActivityLog }

type handler func(ctx context.Context, actor Actor, req Request) (interface{}, error)

// bind adapts a typed engine method to the handler table.
func bind[R Request, T any](fn func(context.Context, Actor, R) (T, error)) handler {
	return func(ctx context.Context, actor Actor, req Request) (interface{}, error) {
		typed, ok := req.(R)
		if !ok {
			return nil, ErrValidation("Request does not match operation")
		}
		return fn(ctx, actor, typed)
	}
}

func newHandlerTable(e *Engine) map[Operation]handler {
	return map[Operation]handler{
		OpSubmit:              bind(e.Submit),
		OpApprove:             bind(e.Approve),
		OpReject:              bind(e.Reject),
		OpProposeEdit:         bind(e.ProposeEdit),
		OpApproveEdit:         bind(e.ApproveEdit),
		OpRejectEdit:          bind(e.RejectEdit),
		OpRequestDeletion:     bind(e.RequestDeletion),
		OpApproveDeletion:     bind(e.ApproveDeletion),
		OpRejectDeletion:      bind(e.RejectDeletion),
		OpChangeReportStatus:  bind(e.ChangeReportStatus),
		OpCastVote:            bind(e.CastVote),
		OpFlagPoint:           bind(e.FlagPoint),
		OpResolveReports:      bind(e.ResolveReports),
		OpBan:                 bind(e.Ban),
		OpUnban:               bind(e.Unban),
		OpToggleRestriction:   bind(e.ToggleRestriction),
		OpSetQuota:            bind(e.SetQuota),
		OpResetQuotaToDefault: bind(e.ResetQuotaToDefault),
		OpSetPhotoLimit:       bind(e.SetPhotoLimit),
		OpResetPhotoUsage:     bind(e.ResetPhotoUsage),
		OpResetPhotoLimit:     bind(e.ResetPhotoLimit),
		OpConsumePhotoBytes:   bind(e.ConsumePhotoBytes),
		OpEditAndResolve:      bind(e.EditAndResolve),
		OpPurgeExpired:        bind(e.PurgeExpired),
		OpRunMaintenance:      bind(e.RunMaintenance),
		OpCheckRestriction:    bind(e.CheckRestriction),
		OpGetRestrictions:     bind(e.GetRestrictions),
		OpGetDailyLimits:      bind(e.GetDailyLimits),
		OpGetPoint:            bind(e.GetPoint),
		OpListPoints:          bind(e.ListPoints),
		OpPointHistory:        bind(e.PointHistory),
		OpModerationQueue:     bind(e.ModerationQueue),
		OpActivityLog:         bind(e.ActivityLog),
	}
}

// Operations lists every operation that has a handler.
func (e *Engine) Operations() []Operation {
	ops := make([]Operation, 0, len(e.handlers))
	for op := range e.handlers {
		ops = append(ops, op)
	}
	return ops
}

// Dispatch routes req to its handler and records the outcome.
func (e *Engine) Dispatch(ctx context.Context, actor Actor, req Request) (interface{}, error) {
	if req == nil {
		return nil, ErrValidation("Request is required")
	}
	op := req.Operation()
	h, ok := e.handlers[op]
	if !ok {
		return nil, ErrValidation("Unknown operation")
	}
	start := time.Now()
	result, err := h(ctx, actor, req)
	observeOperation(op, err, time.Since(start))
	return result, err
}
