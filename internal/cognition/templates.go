// internal/cognition/templates.go
package cognition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/perception"
)

// ErrUnknownTemplate is returned by Render for an ID outside the template table.
var ErrUnknownTemplate = errors.New("unknown prompt template")

// TemplateID names a prompt template.
type TemplateID string

const (
	TemplateDecisionMaking    TemplateID = "decision_making"
	TemplateScreenAnalysis    TemplateID = "screen_analysis"
	TemplateTaskCompletion    TemplateID = "task_completion"
	TemplateAppIdentification TemplateID = "app_identification"
	TemplateTextExtraction    TemplateID = "text_extraction"
	TemplateRegionCaption     TemplateID = "region_caption"
)

// CompletionMarker is the answer the task completion template asks for.
const CompletionMarker = "已完成"

// AnswerSeparator precedes the final answer in identification responses.
const AnswerSeparator = "####"

// Prompt is a rendered system and user prompt pair.
type Prompt struct {
	System string
	User   string
}

// TemplateData carries the values a template may interpolate.
type TemplateData struct {
	Objective   string
	AppName     string
	Query       string
	Instruction string
	Elements    []perception.TextElement
	Recent      []agent.HistoryEntry
}

var templates = map[TemplateID]func(TemplateData) Prompt{
	TemplateDecisionMaking:    renderDecision,
	TemplateScreenAnalysis:    renderScreenAnalysis,
	TemplateTaskCompletion:    renderTaskCompletion,
	TemplateAppIdentification: renderAppIdentification,
	TemplateTextExtraction:    renderTextExtraction,
	TemplateRegionCaption:     renderRegionCaption,
}

// Render fills the template identified by id.
func Render(id TemplateID, data TemplateData) (Prompt, error) {
	render, ok := templates[id]
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	return render(data), nil
}

// Templates lists the known template IDs.
func Templates() []TemplateID {
	return []TemplateID{
		TemplateDecisionMaking,
		TemplateScreenAnalysis,
		TemplateTaskCompletion,
		TemplateAppIdentification,
		TemplateTextExtraction,
		TemplateRegionCaption,
	}
}

const decisionSystem = `You operate an Android phone on behalf of a user. You see the text the
screen currently shows, with the pixel center of each element, and the most recent actions.
Choose exactly one next action and respond with a single JSON object:
{
  "action_type": "click" | "swipe" | "input" | "back" | "home",
  "target": "visible text to tap" or [x, y],
  "direction": "up" | "down" | "left" | "right",
  "text": "text to type, input only",
  "use_visual_search": true when the target is an icon without text,
  "reason": "why this action moves toward the goal"
}
Do not repeat an action that just failed; try a different approach instead.`

func renderDecision(d TemplateData) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "任务目标: %s\n\n", d.Objective)
	writeElements(&b, "当前屏幕文本元素", d.Elements, true)
	b.WriteString("\n")
	writeHistory(&b, d.Recent)
	b.WriteString("\n请决定下一步最合适的操作，以JSON格式返回。")
	return Prompt{System: decisionSystem, User: b.String()}
}

const screenAnalysisSystem = `You analyze mobile app screens. Identify the kind of screen, its key
interactive elements and the actions a user would most likely take next.`

func renderScreenAnalysis(d TemplateData) Prompt {
	var b strings.Builder
	writeElements(&b, "屏幕文本元素", d.Elements, true)
	b.WriteString(`
请分析此屏幕，返回JSON格式的分析结果，包括:
- screen_type: 屏幕类型(如登录页/商品列表/详情页等)
- key_elements: 关键元素列表(按钮/输入框/标签等)
- suggested_actions: 建议操作列表
- additional_visual_elements: OCR可能未捕获的视觉元素(如图标/图片等)`)
	return Prompt{System: screenAnalysisSystem, User: b.String()}
}

const taskCompletionSystem = `You judge whether a phone automation task has been accomplished,
based only on what the screen shows now and the actions taken so far.`

func renderTaskCompletion(d TemplateData) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "目标任务: %s\n\n", d.Objective)
	writeElements(&b, "当前屏幕文本元素", d.Elements, false)
	b.WriteString("\n")
	writeHistory(&b, d.Recent)
	fmt.Fprintf(&b, "\n请判断任务是否已经完成？仅回答 \"%s\" 或 \"未完成\"。", CompletionMarker)
	return Prompt{System: taskCompletionSystem, User: b.String()}
}

func renderAppIdentification(d TemplateData) Prompt {
	system := fmt.Sprintf(`You identify which Android app is in the foreground of a screenshot.
Reason briefly about logos, titles and layout, then write %s followed by only
"是" if the screenshot shows %s, or "不是" otherwise.`, AnswerSeparator, d.AppName)
	return Prompt{
		System: system,
		User:   fmt.Sprintf("请分析这个屏幕截图，判断它是否是%s应用。", d.AppName),
	}
}

const textExtractionSystem = `You extract structured data from OCR output of mobile app screens.
Return JSON only. Use null for fields that are not present.`

func renderTextExtraction(d TemplateData) Prompt {
	var b strings.Builder
	writeElements(&b, "OCR识别结果", d.Elements, true)
	b.WriteString("\n")
	b.WriteString(d.Instruction)
	return Prompt{System: textExtractionSystem, User: b.String()}
}

func renderRegionCaption(d TemplateData) Prompt {
	return Prompt{
		System: "You describe a cropped region of a phone screenshot in one short sentence: icons, labels, images and their meaning.",
		User:   fmt.Sprintf("Describe this region. The user is looking for: %s", d.Query),
	}
}

func writeElements(b *strings.Builder, title string, elements []perception.TextElement, withCenter bool) {
	fmt.Fprintf(b, "%s:\n", title)
	for i, el := range elements {
		if withCenter {
			x, y := el.Center.Rounded()
			fmt.Fprintf(b, "%d. '%s' (%d,%d)\n", i+1, el.Text, x, y)
			continue
		}
		fmt.Fprintf(b, "%d. '%s'\n", i+1, el.Text)
	}
}

func writeHistory(b *strings.Builder, recent []agent.HistoryEntry) {
	b.WriteString("最近操作历史:\n")
	for i, e := range recent {
		status := "成功"
		if !e.Result.Success {
			status = "失败"
		}
		fmt.Fprintf(b, "%d. %s (%s)\n", i+1, e.Action, status)
	}
}
