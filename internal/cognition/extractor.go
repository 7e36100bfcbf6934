// internal/cognition/extractor.go
package cognition

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/llmclient"
	"github.com/xkilldash9x/droidpilot/internal/llmutil"
)

// Record is one extracted item. Field sets depend on the instruction used.
type Record map[string]any

const productInstruction = `请从上述文本中提取商品信息，包括:
- title: 商品标题
- price: 价格(仅数字部分)
- original_price: 原价(如有)
- discount: 折扣信息(如有)
- specifications: 规格信息(如有)
- tags: 标签列表(如有)
以JSON格式返回结果。`

const listInstruction = `请从上述文本中提取所有%s项目，以JSON数组格式返回，每个项目是一个对象。`

const formInstruction = `请识别上述文本中的表单字段，以JSON数组返回，每个字段包括 label、type(文本/数字/日期/选择) 和 position([x, y])。`

// DataExtractor turns recognized screen text into structured records.
type DataExtractor struct {
	client llmclient.Client
	logger *zap.Logger
}

// NewDataExtractor creates an extractor backed by client.
func NewDataExtractor(client llmclient.Client, logger *zap.Logger) *DataExtractor {
	return &DataExtractor{client: client, logger: logger.Named("extractor")}
}

// ExtractProduct extracts the product shown on frame. With vision set the
// screenshot accompanies the text.
func (x *DataExtractor) ExtractProduct(ctx context.Context, frame agent.Frame, vision bool) (Record, error) {
	resp, err := x.query(ctx, frame, productInstruction, vision)
	if err != nil {
		return nil, err
	}
	rec, perr := llmutil.ParseJSON[Record](resp)
	if perr != nil {
		return nil, perr
	}
	return rec, nil
}

// ExtractList extracts every item of itemType listed on frame.
func (x *DataExtractor) ExtractList(ctx context.Context, frame agent.Frame, itemType string) ([]Record, error) {
	resp, err := x.query(ctx, frame, fmt.Sprintf(listInstruction, itemType), false)
	if err != nil {
		return nil, err
	}
	return parseRecords(resp)
}

// ExtractFormFields lists the input fields visible on frame.
func (x *DataExtractor) ExtractFormFields(ctx context.Context, frame agent.Frame) ([]Record, error) {
	resp, err := x.query(ctx, frame, formInstruction, false)
	if err != nil {
		return nil, err
	}
	return parseRecords(resp)
}

// parseRecords accepts a bare array or an object wrapping one.
func parseRecords(resp string) ([]Record, error) {
	if list, perr := llmutil.ParseJSON[[]Record](resp); perr == nil {
		return list, nil
	}
	wrapped, perr := llmutil.ParseJSON[map[string][]Record](resp)
	if perr != nil {
		return nil, perr
	}
	for _, list := range wrapped {
		return list, nil
	}
	return nil, nil
}

func (x *DataExtractor) query(ctx context.Context, frame agent.Frame, instruction string, vision bool) (string, error) {
	prompt, err := Render(TemplateTextExtraction, TemplateData{Elements: frame.Elements, Instruction: instruction})
	if err != nil {
		return "", err
	}
	req := llmclient.Request{SystemPrompt: prompt.System, UserPrompt: prompt.User}
	if vision && len(frame.PNG) > 0 {
		req.Images = [][]byte{frame.PNG}
	}
	resp, err := x.client.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	x.logger.Debug("Extraction response received", zap.Int("elements", len(frame.Elements)), zap.Int("bytes", len(resp)))
	return resp, nil
}
