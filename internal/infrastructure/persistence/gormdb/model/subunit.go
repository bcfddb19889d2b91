package model

type Subunit struct {
	SubunitID string `gorm:"column:subunit_id;type:text;primaryKey"`
	Unit      string `gorm:"column:unit;type:text;not null;index"`
	Name      string `gorm:"column:name;type:text;not null"`
}

func (Subunit) TableName() string {
	return "subunits"
}
