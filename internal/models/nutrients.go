// ABOUTME: Nutrient breakdown shared by food entries, favorites and custom foods.
// ABOUTME: Four macros plus 21 micronutrients, with column names and scan helpers.
package models

// Nutrients holds the macro and micronutrient values of a food portion.
type Nutrients struct {
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
	Carbs    float64 `json:"carbs" yaml:"carbs"`
	Fat      float64 `json:"fat" yaml:"fat"`

	Fiber        float64 `json:"fiber" yaml:"fiber,omitempty"`
	Sugar        float64 `json:"sugar" yaml:"sugar,omitempty"`
	SaturatedFat float64 `json:"saturatedFat" yaml:"saturated_fat,omitempty"`
	TransFat     float64 `json:"transFat" yaml:"trans_fat,omitempty"`
	Cholesterol  float64 `json:"cholesterol" yaml:"cholesterol,omitempty"`
	Sodium       float64 `json:"sodium" yaml:"sodium,omitempty"`
	Potassium    float64 `json:"potassium" yaml:"potassium,omitempty"`
	Calcium      float64 `json:"calcium" yaml:"calcium,omitempty"`
	Iron         float64 `json:"iron" yaml:"iron,omitempty"`
	Magnesium    float64 `json:"magnesium" yaml:"magnesium,omitempty"`
	Zinc         float64 `json:"zinc" yaml:"zinc,omitempty"`
	Phosphorus   float64 `json:"phosphorus" yaml:"phosphorus,omitempty"`
	VitaminA     float64 `json:"vitaminA" yaml:"vitamin_a,omitempty"`
	VitaminC     float64 `json:"vitaminC" yaml:"vitamin_c,omitempty"`
	VitaminD     float64 `json:"vitaminD" yaml:"vitamin_d,omitempty"`
	VitaminE     float64 `json:"vitaminE" yaml:"vitamin_e,omitempty"`
	VitaminK     float64 `json:"vitaminK" yaml:"vitamin_k,omitempty"`
	VitaminB6    float64 `json:"vitaminB6" yaml:"vitamin_b6,omitempty"`
	VitaminB12   float64 `json:"vitaminB12" yaml:"vitamin_b12,omitempty"`
	Folate       float64 `json:"folate" yaml:"folate,omitempty"`
	Niacin       float64 `json:"niacin" yaml:"niacin,omitempty"`
}

// MacroColumns are the nutrient columns present since the first food schema.
var MacroColumns = []string{"calories", "protein", "carbs", "fat"}

// MicronutrientColumns are the nutrient columns added in a later schema version.
var MicronutrientColumns = []string{
	"fiber", "sugar", "saturated_fat", "trans_fat", "cholesterol",
	"sodium", "potassium", "calcium", "iron", "magnesium", "zinc",
	"phosphorus", "vitamin_a", "vitamin_c", "vitamin_d", "vitamin_e",
	"vitamin_k", "vitamin_b6", "vitamin_b12", "folate", "niacin",
}

// NutrientColumns returns every nutrient column name in storage order.
func NutrientColumns() []string {
	cols := make([]string, 0, len(MacroColumns)+len(MicronutrientColumns))
	cols = append(cols, MacroColumns...)
	return append(cols, MicronutrientColumns...)
}

// Fields returns pointers to every nutrient value in NutrientColumns order.
func (n *Nutrients) Fields() []*float64 {
	return []*float64{
		&n.Calories, &n.Protein, &n.Carbs, &n.Fat,
		&n.Fiber, &n.Sugar, &n.SaturatedFat, &n.TransFat, &n.Cholesterol,
		&n.Sodium, &n.Potassium, &n.Calcium, &n.Iron, &n.Magnesium, &n.Zinc,
		&n.Phosphorus, &n.VitaminA, &n.VitaminC, &n.VitaminD, &n.VitaminE,
		&n.VitaminK, &n.VitaminB6, &n.VitaminB12, &n.Folate, &n.Niacin,
	}
}

// Add accumulates o into n.
func (n *Nutrients) Add(o Nutrients) {
	dst := n.Fields()
	src := o.Fields()
	for i := range dst {
		*dst[i] += *src[i]
	}
}

// Scale returns n multiplied by factor.
func (n Nutrients) Scale(factor float64) Nutrients {
	out := n
	for _, f := range out.Fields() {
		*f *= factor
	}
	return out
}
