package handlers

import (
	"github.com/TronoSfera/Law-sub001/internal/api/dto"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/service"
)

func requestResponse(r *domain.Request) dto.RequestResponse {
	return dto.RequestResponse{
		ID:                     r.ID,
		TrackNumber:            r.TrackNumber,
		ClientName:             r.ClientName,
		ClientPhone:            r.ClientPhone,
		ClientEmail:            r.ClientEmail,
		TopicCode:              r.TopicCode,
		StatusCode:             r.StatusCode,
		Description:            r.Description,
		ExtraFields:            r.ExtraFields,
		AssignedLawyerID:       r.AssignedLawyerID,
		EffectiveRate:          r.EffectiveRate,
		InvoiceAmount:          r.InvoiceAmount,
		RequestCost:            r.RequestCost,
		PaidAt:                 r.PaidAt,
		PaidByAdminID:          r.PaidByAdminID,
		ClientHasUnreadUpdates: r.ClientHasUnreadUpdates,
		ClientUnreadEventType:  r.ClientUnreadEventType,
		LawyerHasUnreadUpdates: r.LawyerHasUnreadUpdates,
		LawyerUnreadEventType:  r.LawyerUnreadEventType,
		Responsible:            r.Responsible,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

func clientRequestResponse(r *domain.Request) dto.ClientRequestResponse {
	return dto.ClientRequestResponse{
		TrackNumber:      r.TrackNumber,
		TopicCode:        r.TopicCode,
		StatusCode:       r.StatusCode,
		Description:      r.Description,
		InvoiceAmount:    r.InvoiceAmount,
		PaidAt:           r.PaidAt,
		HasUnreadUpdates: r.ClientHasUnreadUpdates,
		UnreadEventType:  r.ClientUnreadEventType,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func historyResponse(h domain.StatusHistory) dto.HistoryEntryResponse {
	return dto.HistoryEntryResponse{
		ID:            h.ID,
		FromStatus:    h.FromStatus,
		ToStatus:      h.ToStatus,
		Comment:       h.Comment,
		ChangedByRole: h.ChangedByRole,
		ChangedByID:   h.ChangedByID,
		CreatedAt:     h.CreatedAt,
	}
}

func invoiceResponse(inv domain.Invoice, details *domain.PayerDetails) dto.InvoiceResponse {
	return dto.InvoiceResponse{
		ID:                  inv.ID,
		RequestID:           inv.RequestID,
		Number:              inv.Number,
		Status:              inv.Status,
		Amount:              inv.Amount,
		Currency:            inv.Currency,
		PayerDisplayName:    inv.PayerDisplayName,
		PayerDetails:        details,
		IssuedByAdminUserID: inv.IssuedByAdminUserID,
		IssuedByRole:        inv.IssuedByRole,
		IssuedAt:            inv.IssuedAt,
		PaidAt:              inv.PaidAt,
		PaidByAdminID:       inv.PaidByAdminID,
	}
}

func invoiceViewResponse(v *service.InvoiceView) dto.InvoiceResponse {
	return invoiceResponse(v.Invoice, v.Details)
}

func messageResponse(m *domain.RequestMessage) dto.MessageResponse {
	return dto.MessageResponse{
		ID:         m.ID,
		AuthorRole: m.AuthorRole,
		AuthorID:   m.AuthorID,
		Body:       m.Body,
		CreatedAt:  m.CreatedAt,
	}
}

func attachmentResponse(a *domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:             a.ID,
		MessageID:      a.MessageID,
		FileName:       a.FileName,
		MimeType:       a.MimeType,
		SizeBytes:      a.SizeBytes,
		UploadedByRole: a.UploadedByRole,
		CreatedAt:      a.CreatedAt,
	}
}

func threadResponse(t *service.Thread) dto.ThreadResponse {
	out := dto.ThreadResponse{
		Messages:    make([]dto.MessageResponse, 0, len(t.Messages)),
		Attachments: make([]dto.AttachmentResponse, 0, len(t.Attachments)),
	}
	for i := range t.Messages {
		out.Messages = append(out.Messages, messageResponse(&t.Messages[i]))
	}
	for i := range t.Attachments {
		out.Attachments = append(out.Attachments, attachmentResponse(&t.Attachments[i]))
	}
	return out
}

func notificationResponse(n domain.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        n.ID,
		RequestID: n.RequestID,
		EventType: n.EventType,
		Title:     n.Title,
		Body:      n.Body,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func adminUserResponse(u *domain.AdminUser) dto.AdminUserResponse {
	return dto.AdminUserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Active: u.Active}
}

func statusPayload(s domain.Status) dto.StatusPayload {
	return dto.StatusPayload{
		Code:            s.Code,
		Name:            s.Name,
		Kind:            s.Kind,
		InvoiceTemplate: s.InvoiceTemplate,
		IsTerminal:      s.IsTerminal,
		SortOrder:       s.SortOrder,
	}
}

func transitionPayload(t domain.TopicStatusTransition) dto.TransitionPayload {
	updated := t.UpdatedAt
	return dto.TransitionPayload{
		ID:                t.ID,
		TopicCode:         t.TopicCode,
		FromStatus:        t.FromStatus,
		ToStatus:          t.ToStatus,
		Enabled:           t.Enabled,
		SLAHours:          t.SLAHours,
		RequiredDataKeys:  t.RequiredDataKeys,
		RequiredMimeTypes: t.RequiredMimeTypes,
		UpdatedAt:         &updated,
	}
}
