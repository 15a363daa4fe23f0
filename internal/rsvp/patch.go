package rsvp

import (
	"WeddingRSVP/internal/model"
	"WeddingRSVP/pkg/errors"
)

// AttendeePatch 出席者字段组的部分更新，nil 表示不修改。
// 只检查字段自身的形状，跨字段校验在 Validate 中进行。
type AttendeePatch struct {
	Name          *string          `json:"name,omitempty"`
	Furigana      *string          `json:"furigana,omitempty"`
	Birthday      *string          `json:"birthday,omitempty"`
	HotelUse      *model.UseOption `json:"hotelUse,omitempty"`
	TaxiUse       *model.UseOption `json:"taxiUse,omitempty"`
	ParkingUse    *model.UseOption `json:"parkingUse,omitempty"`
	DislikedFoods *string          `json:"dislikedFoods,omitempty"`
}

// Apply 返回应用补丁后的副本，原记录不变
func (p AttendeePatch) Apply(a model.Attendee) (model.Attendee, error) {
	for _, opt := range []*model.UseOption{p.HotelUse, p.TaxiUse, p.ParkingUse} {
		if opt != nil && !opt.Valid() {
			return model.Attendee{}, errors.AttendeeFieldBad
		}
	}

	out := a.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Furigana != nil {
		out.Furigana = *p.Furigana
	}
	if p.Birthday != nil {
		out.Birthday = *p.Birthday
	}
	if p.HotelUse != nil {
		out.HotelUse = *p.HotelUse
	}
	if p.TaxiUse != nil {
		out.TaxiUse = *p.TaxiUse
	}
	if p.ParkingUse != nil {
		out.ParkingUse = *p.ParkingUse
	}
	if p.DislikedFoods != nil {
		out.DislikedFoods = *p.DislikedFoods
	}
	return out, nil
}
