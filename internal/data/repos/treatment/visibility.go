package treatment

import "gorm.io/gorm"

// Visibility scopes read models to what an identity may see: requests on
// fields the farmer owns, requests the agronomist authored, or the union
// when both are set.
type Visibility struct {
	FarmerID     *uint
	AgronomistID *uint
}

func (v Visibility) Empty() bool {
	return v.FarmerID == nil && v.AgronomistID == nil
}

// apply adds the ownership predicate. The query must already join field on
// treatment_request.field_id.
func (v Visibility) apply(q *gorm.DB) *gorm.DB {
	switch {
	case v.FarmerID != nil && v.AgronomistID != nil:
		return q.Where("field.farmer_id = ? OR treatment_request.agronomist_id = ?", *v.FarmerID, *v.AgronomistID)
	case v.FarmerID != nil:
		return q.Where("field.farmer_id = ?", *v.FarmerID)
	default:
		return q.Where("treatment_request.agronomist_id = ?", *v.AgronomistID)
	}
}
