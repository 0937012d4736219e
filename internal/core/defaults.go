package core

// CategorySeed describes a category created for every new user.
type CategorySeed struct {
	Name  string       `toml:"name"`
	Icon  string       `toml:"icon"`
	Color string       `toml:"color"`
	Type  CategoryType `toml:"type"`
}

// DefaultCategorySeeds returns the built-in seed list. Callers receive a fresh
// slice and may modify it freely.
func DefaultCategorySeeds() []CategorySeed {
	return []CategorySeed{
		{Name: "Food & Dining", Icon: "🍔", Color: "#ef4444", Type: CategoryExpense},
		{Name: "Transportation", Icon: "🚗", Color: "#3b82f6", Type: CategoryExpense},
		{Name: "Shopping", Icon: "🛍️", Color: "#ec4899", Type: CategoryExpense},
		{Name: "Entertainment", Icon: "🎬", Color: "#8b5cf6", Type: CategoryExpense},
		{Name: "Bills & Utilities", Icon: "💡", Color: "#f59e0b", Type: CategoryExpense},
		{Name: "Healthcare", Icon: "🏥", Color: "#10b981", Type: CategoryExpense},
		{Name: "Education", Icon: "📚", Color: "#06b6d4", Type: CategoryExpense},
		{Name: "Salary", Icon: "💰", Color: "#22c55e", Type: CategoryIncome},
		{Name: "Freelance", Icon: "💼", Color: "#14b8a6", Type: CategoryIncome},
		{Name: "Other", Icon: "📌", Color: "#6b7280", Type: CategoryBoth},
	}
}

// DefaultPaymentMethods returns the payment methods offered for selection.
func DefaultPaymentMethods() []string {
	return []string{"Cash", "Credit Card", "Debit Card", "Bank Transfer", "Digital Wallet", "Other"}
}

// Category builds a default category owned by userID from the seed.
func (s CategorySeed) Category(userID string) Category {
	return Category{
		UserID:    userID,
		Name:      s.Name,
		Icon:      s.Icon,
		Color:     s.Color,
		Type:      s.Type,
		IsDefault: true,
	}
}

const (
	// DefaultGoalIcon and DefaultGoalColor are applied to goals created without them.
	DefaultGoalIcon  = "🎯"
	DefaultGoalColor = "#3B82F6"

	// DefaultReminderDays is the reminder lead time for new recurring rules.
	DefaultReminderDays = 3
)
