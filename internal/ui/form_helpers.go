package ui

import (
	"strings"

	"github.com/rivo/tview"
)

// getFormItemByLabel finds a form item by its label (supports prefix matching for decorated labels).
func getFormItemByLabel(form *tview.Form, label string) tview.FormItem {
	formItemIndex := form.GetFormItemIndex(label)
	if formItemIndex < 0 {
		for i := range form.GetFormItemCount() {
			formItem := form.GetFormItem(i)
			if formItem == nil {
				continue
			}
			if strings.HasPrefix(formItem.GetLabel(), label) {
				formItemIndex = i
				break
			}
		}
	}
	if formItemIndex < 0 {
		panic("Failed to find " + label + " form item index")
	}

	formItem := form.GetFormItem(formItemIndex)
	if formItem == nil {
		panic("Failed to find " + label + " form item")
	}

	return formItem
}

func getTextFromInputField(form *tview.Form, label string) string {
	formItem := getFormItemByLabel(form, label)

	inputField, ok := formItem.(*tview.InputField)
	if !ok {
		panic("Failed to cast " + label + " input field")
	}

	return inputField.GetText()
}

func getTextFromTextArea(form *tview.Form, label string) string {
	formItem := getFormItemByLabel(form, label)

	textArea, ok := formItem.(*hintedTextArea)
	if !ok {
		panic("Failed to cast " + label + " text area")
	}

	return textArea.GetText()
}

func setTextFromTextArea(form *tview.Form, label, value string) {
	formItem := getFormItemByLabel(form, label)

	textArea, ok := formItem.(*hintedTextArea)
	if !ok {
		panic("Failed to cast " + label + " text area")
	}

	textArea.SetText(value, true)
}

func getCheckedFromCheckbox(form *tview.Form, label string) bool {
	formItem := getFormItemByLabel(form, label)

	checkbox, ok := formItem.(*tview.Checkbox)
	if !ok {
		panic("Failed to cast " + label + " checkbox")
	}

	return checkbox.IsChecked()
}

func setCheckedFromCheckbox(form *tview.Form, label string, checked bool) {
	formItem := getFormItemByLabel(form, label)

	checkbox, ok := formItem.(*tview.Checkbox)
	if !ok {
		panic("Failed to cast " + label + " checkbox")
	}

	checkbox.SetChecked(checked)
}

func computeFormDialogHeight(form *tview.Form) int {
	itemCount := form.GetFormItemCount()
	totalItemHeight := 0
	for i := range itemCount {
		itemHeight := form.GetFormItem(i).GetFieldHeight()
		if itemHeight <= 0 {
			itemHeight = tview.DefaultFormFieldHeight
		}
		totalItemHeight += itemHeight
	}

	paddingBetweenItems := 0
	if itemCount > 1 {
		paddingBetweenItems = itemCount - 1
	}

	buttonRows := 0
	if form.GetButtonCount() > 0 {
		buttonRows = 2
	}

	borderRows := 2
	paddingRows := 2
	totalRows := borderRows + paddingRows + totalItemHeight + paddingBetweenItems + buttonRows
	return min(totalRows, maxDialogViewportHeight)
}

func computeFormDialogWidth(form *tview.Form) int {
	maxLabelWidth := 0
	for i := range form.GetFormItemCount() {
		formItem := form.GetFormItem(i)
		if formItem == nil {
			continue
		}
		labelWidth := tview.TaggedStringWidth(formItem.GetLabel())
		if labelWidth > maxLabelWidth {
			maxLabelWidth = labelWidth
		}
	}

	return 2 + 2 + maxLabelWidth + 1 + FormFieldWidth
}

// findFormInPrimitive walks nested flexes to the form of a dialog page.
func findFormInPrimitive(p tview.Primitive) *tview.Form {
	if form, ok := p.(*tview.Form); ok {
		return form
	}
	if flex, ok := p.(*tview.Flex); ok {
		for i := range flex.GetItemCount() {
			item := flex.GetItem(i)
			if result := findFormInPrimitive(item); result != nil {
				return result
			}
		}
	}
	return nil
}

// frontDialogForm returns the form of the dialog currently on top, if any.
func (a *App) frontDialogForm() *tview.Form {
	_, front := a.Pages.GetFrontPage()
	if front == nil {
		return nil
	}
	return findFormInPrimitive(front)
}
