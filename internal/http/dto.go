package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/training-erp/internal/application"
	"github.com/example/training-erp/internal/persistence"
	"github.com/example/training-erp/internal/provisioning"
	"github.com/example/training-erp/internal/scheduler"
)

type sessionDTO struct {
	ID                  string          `json:"id"`
	DealID              string          `json:"deal_id"`
	ProductLineID       *string         `json:"product_line_id"`
	Status              string          `json:"status"`
	Start               *time.Time      `json:"start"`
	End                 *time.Time      `json:"end"`
	RoomID              *string         `json:"room_id"`
	Address             *string         `json:"address"`
	Site                *string         `json:"site"`
	Comments            *string         `json:"comments"`
	Origin              *string         `json:"origin"`
	TrainerIDs          []string        `json:"trainer_ids"`
	MobileUnitIDs       []string        `json:"mobile_unit_ids"`
	IsEmpty             bool            `json:"is_empty"`
	IsExceedingQuantity bool            `json:"is_exceeding_quantity"`
	ProductLine         *productLineDTO `json:"product_line"`
	Room                *roomDTO        `json:"room"`
	Trainers            []trainerDTO    `json:"trainers"`
	MobileUnits         []mobileUnitDTO `json:"mobile_units"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func toSessionDTO(view application.SessionView) sessionDTO {
	dto := sessionDTO{
		ID:                  view.ID,
		DealID:              view.DealID,
		ProductLineID:       view.ProductLineID,
		Status:              string(view.Status),
		Start:               utcPtr(view.Start),
		End:                 utcPtr(view.End),
		RoomID:              view.RoomID,
		Address:             view.Address,
		Site:                view.Site,
		Comments:            view.Comments,
		Origin:              view.Origin,
		TrainerIDs:          nonNil(view.TrainerIDs),
		MobileUnitIDs:       nonNil(view.MobileUnitIDs),
		IsEmpty:             view.IsEmpty,
		IsExceedingQuantity: view.IsExceedingQuantity,
		Trainers:            make([]trainerDTO, 0, len(view.Trainers)),
		MobileUnits:         make([]mobileUnitDTO, 0, len(view.MobileUnits)),
		CreatedAt:           view.CreatedAt.UTC(),
		UpdatedAt:           view.UpdatedAt.UTC(),
	}
	if view.ProductLine != nil {
		line := toProductLineDTO(*view.ProductLine)
		dto.ProductLine = &line
	}
	if view.Room != nil {
		room := toRoomDTO(*view.Room)
		dto.Room = &room
	}
	for _, trainer := range view.Trainers {
		dto.Trainers = append(dto.Trainers, toTrainerDTO(trainer))
	}
	for _, unit := range view.MobileUnits {
		dto.MobileUnits = append(dto.MobileUnits, toMobileUnitDTO(unit))
	}
	return dto
}

func toSessionDTOs(views []application.SessionView) []sessionDTO {
	out := make([]sessionDTO, 0, len(views))
	for _, view := range views {
		out = append(out, toSessionDTO(view))
	}
	return out
}

type productLineDTO struct {
	ID               string          `json:"id"`
	DealID           string          `json:"deal_id"`
	ProductCode      string          `json:"product_code"`
	ProductName      string          `json:"product_name"`
	Quantity         decimal.Decimal `json:"quantity"`
	Hours            decimal.Decimal `json:"hours"`
	Plannable        bool            `json:"plannable"`
	RequiredSessions int             `json:"required_sessions"`
}

func toProductLineDTO(view application.ProductLineView) productLineDTO {
	return productLineDTO{
		ID:               view.ID,
		DealID:           view.DealID,
		ProductCode:      view.ProductCode,
		ProductName:      view.ProductName,
		Quantity:         view.Quantity,
		Hours:            view.Hours,
		Plannable:        view.Plannable,
		RequiredSessions: view.RequiredSessions,
	}
}

type dealDTO struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	OrganizationName string           `json:"organization_name"`
	DefaultAddress   *string          `json:"default_address"`
	DefaultSite      *string          `json:"default_site"`
	Lines            []productLineDTO `json:"lines,omitempty"`
	SessionCount     *int             `json:"session_count,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func toDealDTO(deal persistence.Deal) dealDTO {
	return dealDTO{
		ID:               deal.ID,
		Title:            deal.Title,
		OrganizationName: deal.OrganizationName,
		DefaultAddress:   deal.DefaultAddress,
		DefaultSite:      deal.DefaultSite,
		CreatedAt:        deal.CreatedAt.UTC(),
		UpdatedAt:        deal.UpdatedAt.UTC(),
	}
}

func toDealViewDTO(view application.DealView) dealDTO {
	dto := toDealDTO(view.Deal)
	dto.Lines = make([]productLineDTO, 0, len(view.Lines))
	for _, line := range view.Lines {
		dto.Lines = append(dto.Lines, toProductLineDTO(line))
	}
	count := view.SessionCount
	dto.SessionCount = &count
	return dto
}

type roomDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

func toRoomDTO(room persistence.Room) roomDTO {
	return roomDTO{ID: room.ID, Name: room.Name, Location: room.Location}
}

type trainerDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

func toTrainerDTO(trainer persistence.Trainer) trainerDTO {
	return trainerDTO{ID: trainer.ID, Name: trainer.Name, Email: trainer.Email, Active: trainer.Active}
}

type mobileUnitDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Plate string `json:"plate"`
}

func toMobileUnitDTO(unit persistence.MobileUnit) mobileUnitDTO {
	return mobileUnitDTO{ID: unit.ID, Name: unit.Name, Plate: unit.Plate}
}

type conflictDetailDTO struct {
	SessionID        string    `json:"session_id"`
	DealID           string    `json:"deal_id"`
	DealTitle        string    `json:"deal_title"`
	OrganizationName string    `json:"organization_name"`
	ProductCode      string    `json:"product_code"`
	ProductName      string    `json:"product_name"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
}

type conflictDTO struct {
	ResourceType string              `json:"resource_type"`
	ResourceID   string              `json:"resource_id"`
	Details      []conflictDetailDTO `json:"details"`
}

func toConflictDTOs(conflicts []scheduler.Conflict) []conflictDTO {
	out := make([]conflictDTO, 0, len(conflicts))
	for _, conflict := range conflicts {
		dto := conflictDTO{
			ResourceType: string(conflict.Kind),
			ResourceID:   conflict.ResourceID,
			Details:      make([]conflictDetailDTO, 0, len(conflict.Details)),
		}
		for _, detail := range conflict.Details {
			dto.Details = append(dto.Details, conflictDetailDTO{
				SessionID:        detail.SessionID,
				DealID:           detail.DealID,
				DealTitle:        detail.DealTitle,
				OrganizationName: detail.OrganizationName,
				ProductCode:      detail.ProductCode,
				ProductName:      detail.ProductName,
				Start:            detail.Start.UTC(),
				End:              detail.End.UTC(),
			})
		}
		out = append(out, dto)
	}
	return out
}

type creationDTO struct {
	ProductLineID string `json:"product_line_id"`
	ProductCode   string `json:"product_code"`
	Count         int    `json:"count"`
}

type planDTO struct {
	ToCreate []creationDTO `json:"to_create"`
	ToDelete []string      `json:"to_delete"`
	ToFlag   []string      `json:"to_flag"`
}

func toPlanDTO(plan provisioning.Plan) planDTO {
	dto := planDTO{
		ToCreate: make([]creationDTO, 0, len(plan.ToCreate)),
		ToDelete: nonNil(plan.ToDelete),
		ToFlag:   nonNil(plan.ToFlag),
	}
	for _, creation := range plan.ToCreate {
		dto.ToCreate = append(dto.ToCreate, creationDTO{
			ProductLineID: creation.Line.ID,
			ProductCode:   creation.Line.ProductCode,
			Count:         creation.Count,
		})
	}
	return dto
}

type syncDTO struct {
	Created      []string `json:"created"`
	Deleted      []string `json:"deleted"`
	Flagged      []string `json:"flagged"`
	SessionCount int      `json:"session_count"`
}

func toSyncDTO(result provisioning.SyncResult) syncDTO {
	return syncDTO{
		Created:      nonNil(result.Created),
		Deleted:      nonNil(result.Deleted),
		Flagged:      nonNil(result.Flagged),
		SessionCount: result.SessionCount,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
