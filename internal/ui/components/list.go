package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/dlgen/internal/api"
)

// ListItem represents an item in a list
type ListItem struct {
	ID          string
	Title       string
	Description string
	Status      string
	Icon        string
	Checked     bool
	Data        interface{} // Store associated data
}

// List represents a navigable list component
type List struct {
	Title         string
	Items         []ListItem
	Selected      int
	Focused       bool
	Width         int
	Height        int
	ShowNumbers   bool
	ShowIcons     bool
	Checkboxes    bool
	Empty         string
	searchQuery   string
	filteredItems []int // Indices of filtered items
}

// NewList creates a new list component
func NewList(title string, width, height int) *List {
	return &List{
		Title:     title,
		Width:     width,
		Height:    height,
		ShowIcons: true,
		Empty:     "Nothing to show",
	}
}

// AddItem adds an item to the list
func (l *List) AddItem(item *ListItem) {
	l.Items = append(l.Items, *item)
	l.updateFilter()
}

// SetItems sets all items in the list and keeps the cursor in range
func (l *List) SetItems(items []ListItem) {
	l.Items = items
	l.updateFilter()
	if l.Selected >= len(l.filteredItems) {
		l.Selected = max(0, len(l.filteredItems)-1)
	}
}

// SetFocused sets the focus state of the list
func (l *List) SetFocused(focused bool) {
	l.Focused = focused
}

// Len returns the number of visible items
func (l *List) Len() int {
	return len(l.filteredItems)
}

// GetSelectedItem returns the currently selected item
func (l *List) GetSelectedItem() *ListItem {
	if len(l.filteredItems) == 0 || l.Selected >= len(l.filteredItems) {
		return nil
	}
	index := l.filteredItems[l.Selected]
	if index >= len(l.Items) {
		return nil
	}
	return &l.Items[index]
}

// Select moves the cursor to the item with id, if visible
func (l *List) Select(id string) {
	for i, index := range l.filteredItems {
		if l.Items[index].ID == id {
			l.Selected = i
			return
		}
	}
}

// MoveUp moves selection up
func (l *List) MoveUp() {
	if l.Selected > 0 {
		l.Selected--
	}
}

// MoveDown moves selection down
func (l *List) MoveDown() {
	if l.Selected < len(l.filteredItems)-1 {
		l.Selected++
	}
}

// SetSearch sets the search query and filters items
func (l *List) SetSearch(query string) {
	l.searchQuery = query
	l.Selected = 0
	l.updateFilter()
}

// updateFilter updates the filtered items based on search query
func (l *List) updateFilter() {
	l.filteredItems = l.filteredItems[:0]

	for i, item := range l.Items {
		if l.searchQuery == "" || l.matchesSearch(&item, l.searchQuery) {
			l.filteredItems = append(l.filteredItems, i)
		}
	}
}

// matchesSearch checks if an item matches the search query
func (l *List) matchesSearch(item *ListItem, query string) bool {
	query = strings.ToLower(query)
	return strings.Contains(strings.ToLower(item.Title), query) ||
		strings.Contains(strings.ToLower(item.Description), query) ||
		strings.Contains(strings.ToLower(item.ID), query)
}

// Render renders the list
func (l *List) Render() string {
	primaryColor := lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#60A5FA"}
	secondaryColor := lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

	headerStyle := lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	normalStyle := lipgloss.NewStyle().Foreground(secondaryColor)

	var content []string
	if l.Title != "" {
		content = append(content, headerStyle.Render(l.Title))
	}

	if l.searchQuery != "" {
		searchText := fmt.Sprintf("Search: %s (%d results)", l.searchQuery, len(l.filteredItems))
		content = append(content, normalStyle.Render(searchText))
	}

	if len(l.filteredItems) == 0 {
		content = append(content, normalStyle.Italic(true).Render(l.Empty))
		return l.frame(content, secondaryColor, primaryColor)
	}

	// Calculate visible range
	maxVisible := l.Height - 4 // Account for title and spacing
	if maxVisible < 1 {
		maxVisible = 1
	}

	startIndex := 0
	if l.Selected >= maxVisible {
		startIndex = l.Selected - maxVisible + 1
	}

	endIndex := startIndex + maxVisible
	if endIndex > len(l.filteredItems) {
		endIndex = len(l.filteredItems)
	}

	for i := startIndex; i < endIndex; i++ {
		item := l.Items[l.filteredItems[i]]
		content = append(content, l.renderItem(&item, i+1, l.Focused && i == l.Selected))
	}

	if len(l.filteredItems) > maxVisible {
		scrollInfo := fmt.Sprintf("(%d-%d of %d)", startIndex+1, endIndex, len(l.filteredItems))
		content = append(content, normalStyle.Render(scrollInfo))
	}

	return l.frame(content, secondaryColor, primaryColor)
}

func (l *List) frame(content []string, border, focused lipgloss.AdaptiveColor) string {
	joined := lipgloss.JoinVertical(lipgloss.Left, content...)
	style := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border)
	if l.Focused {
		style = style.BorderForeground(focused)
	}
	if l.Width > 0 {
		style = style.Width(l.Width)
	}
	return style.Render(joined)
}

// renderItem renders a single list item
func (l *List) renderItem(item *ListItem, number int, selected bool) string {
	primaryColor := lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#60A5FA"}
	secondaryColor := lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	selectedColor := lipgloss.AdaptiveColor{Light: "#DBEAFE", Dark: "#1E3A8A"}
	successColor := lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}
	warningColor := lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"}
	errorColor := lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#F87171"}

	var parts []string

	if selected {
		parts = append(parts, "▶")
	} else {
		parts = append(parts, " ")
	}

	if l.ShowNumbers {
		parts = append(parts, fmt.Sprintf("%2d.", number))
	}

	if l.Checkboxes {
		if item.Checked {
			parts = append(parts, "[x]")
		} else {
			parts = append(parts, "[ ]")
		}
	}

	if l.ShowIcons && item.Icon != "" {
		parts = append(parts, item.Icon)
	}

	title := item.Title
	if item.Description != "" {
		title += " - " + item.Description
	}
	parts = append(parts, title)

	line := strings.Join(parts, " ")

	var style lipgloss.Style
	if selected {
		style = lipgloss.NewStyle().Background(selectedColor).Foreground(primaryColor).Bold(true)
	} else {
		style = lipgloss.NewStyle().Foreground(secondaryColor)
		switch item.Status {
		case "success":
			style = style.Foreground(successColor)
		case "warning":
			style = style.Foreground(warningColor)
		case "error":
			style = style.Foreground(errorColor)
		case "info":
			style = style.Foreground(primaryColor)
		}
	}

	if l.Width > 4 {
		style = style.Width(l.Width - 4)
	}
	return style.Render(line)
}

// NewChoiceList creates a list for picking one of values. The current value is preselected.
func NewChoiceList(title string, values []string, current string, width, height int) *List {
	list := NewList(title, width, height)
	list.Focused = true
	list.Empty = "No options available"
	for _, v := range values {
		list.AddItem(&ListItem{ID: v, Title: v, Data: v})
	}
	if current != "" {
		list.Select(current)
	}
	return list
}

// NewUserList creates a list component for managed users
func NewUserList(users []api.User, width, height int) *List {
	list := NewList("Users", width, height)
	list.Empty = "No users match"
	list.SetItems(UserItems(users))
	return list
}

// UserItems converts users into list items
func UserItems(users []api.User) []ListItem {
	items := make([]ListItem, 0, len(users))
	for _, u := range users {
		status := "info"
		if u.Access == api.AccessAdmin {
			status = "warning"
		}
		items = append(items, ListItem{
			ID:          u.Email,
			Title:       u.Email,
			Description: fmt.Sprintf("%s · %s", u.Access, strings.Join(u.Clients, ", ")),
			Status:      status,
			Data:        u,
		})
	}
	return items
}

// NewAuditList creates a list component for one page of audit entries
func NewAuditList(entries []api.AuditEntry, width, height int) *List {
	list := NewList("Audit Trail", width, height)
	list.Empty = "No audit entries"
	for _, e := range entries {
		list.AddItem(&ListItem{
			ID:          fmt.Sprintf("%d", e.ID),
			Title:       fmt.Sprintf("#%d %s", e.ID, e.Client),
			Description: fmt.Sprintf("%s by %s · %d accounts · %s", e.ProcessedAt, e.ProcessedBy, e.TotalAccounts, e.Mode),
			Data:        e,
		})
	}
	return list
}
