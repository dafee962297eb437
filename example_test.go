package unibase_test

import (
	"context"
	"fmt"
	"log"

	"github.com/river-berlin/unibase"
	"github.com/river-berlin/unibase/pkg/domain"
	"github.com/river-berlin/unibase/pkg/ports"
)

type noMesh struct{}

func (noMesh) Render(context.Context, string) (string, error) {
	return "solid empty\nendsolid empty", nil
}

// ExampleEngine_ApplyTool edits a project directly, without a model in the loop.
func ExampleEngine_ApplyTool() {
	idle := ports.ChatModelFunc(func(context.Context, domain.ChatRequest) (domain.Message, error) {
		return domain.Message{Content: "nothing to do"}, nil
	})
	engine, err := unibase.New(idle, unibase.WithRenderer(noMesh{}))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if _, _, err := engine.ApplyTool(ctx, "desk", "add_or_replace_cylinder", map[string]any{
		"objectId": "leg",
		"radius":   0.5,
		"height":   10,
	}); err != nil {
		log.Fatal(err)
	}
	msg, scad, err := engine.ApplyTool(ctx, "desk", "place_object", map[string]any{
		"objectId": "leg", "x": 4, "y": 2, "z": 0,
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(msg)
	fmt.Println(scad)
	// Output:
	// Moved leg to [4, 2, 0]
	// // Object: leg
	// translate([4, 2, 0]) rotate([0, 0, 0]) cylinder(r=0.5, h=10, center=true, $fn=64);
}

// ExampleEngine_Run drives one conversation with a scripted model.
func ExampleEngine_Run() {
	turn := 0
	scripted := ports.ChatModelFunc(func(context.Context, domain.ChatRequest) (domain.Message, error) {
		turn++
		if turn == 1 {
			return domain.Message{
				Content:   "A single ball.",
				ToolCalls: []domain.ToolCall{{ID: "1", Name: "add_or_replace_sphere", Arguments: `{"radius": 2}`}},
			}, nil
		}
		return domain.Message{Content: "Done."}, nil
	})
	engine, err := unibase.New(scripted, unibase.WithRenderer(noMesh{}))
	if err != nil {
		log.Fatal(err)
	}

	res, err := engine.Run(context.Background(), unibase.Request{Instruction: "a ball"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.SCAD)
	fmt.Println(res.Iterations, len(res.Errors))
	// Output:
	// // Object: object_1
	// translate([0, 0, 0]) rotate([0, 0, 0]) sphere(r=2, $fn=64);
	// 2 0
}
