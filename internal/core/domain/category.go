package domain

// Category partitions web source references by domain heuristics.
type Category string

const (
	CategorySocialMedia   Category = "SocialMedia"
	CategoryBlogs         Category = "Blogs"
	CategoryNews          Category = "News"
	CategoryAcademic      Category = "Academic"
	CategoryGovernmentOrg Category = "GovernmentOrg"
	CategoryEcommerce     Category = "Ecommerce"
	CategoryTechnicalDocs Category = "TechnicalDocs"
	CategoryOthers        Category = "Others"
)

// AllCategories lists every category in rule-evaluation order.
// The order is a fixed contract: ambiguous domains resolve to the
// first matching rule.
func AllCategories() []Category {
	return []Category{
		CategorySocialMedia,
		CategoryBlogs,
		CategoryNews,
		CategoryAcademic,
		CategoryGovernmentOrg,
		CategoryEcommerce,
		CategoryTechnicalDocs,
		CategoryOthers,
	}
}
