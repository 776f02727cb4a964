package domain

var Tables = []interface{}{
	// Catalog
	&Category{},
	&SubCategory{},
	&Brand{},
	&Stock{},
	&IndexCategory{},
	&Image{},
	&Product{},
	&ShortDescription{},
	&ProductRating{},
	&Banner{},
	// Orders
	&OrderUser{},
	&Order{},
	// About
	&Contact{},
	&Social{},
	&Service{},
}
