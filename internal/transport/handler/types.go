package handler

// ProductParams are the scalar form fields shared by create and update.
type ProductParams struct {
	Title       string   `validate:"required,max=200"`
	Price       float64  `validate:"gt=0"`
	WorkingTime int32    `validate:"gt=0,lte=32767"` // minutes
	Difficulty  *int16   `validate:"omitempty,gte=1,lte=5"`
	Width       *float64 `validate:"omitempty,gte=0"`
	Height      *float64 `validate:"omitempty,gte=0"`
	Depth       *float64 `validate:"omitempty,gte=0"`
	Slug        string   `validate:"omitempty,max=200"`
}

type BannerParams struct {
	LinkURL      *string `validate:"omitempty,url,max=2048"`
	DisplayOrder *int    `validate:"omitempty,gte=0"`
	IsActive     *bool
}
