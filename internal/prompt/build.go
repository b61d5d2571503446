package prompt

import (
	"fmt"
	"strings"
)

const noLayout = "No layout analysis available"

type Input struct {
	Term        string
	MainCaption string
	Regions     []string
	Activity    string
	Size        Size
}

// BuildSuperPrompt assembles the recreation prompt from the per-region,
// layout and interaction analyses.
func BuildSuperPrompt(in Input) string {
	term := Title(in.Term)
	if term == "" {
		term = "Region"
	}

	specs := make([]string, len(in.Regions))
	for i, desc := range in.Regions {
		specs[i] = fmt.Sprintf("%s %d: %s", term, i+1, desc)
	}
	regionSpecs := strings.Join(specs, "\n")

	layout := in.MainCaption
	if strings.TrimSpace(layout) == "" {
		layout = noLayout
	}

	if in.Size == SizeExtensive {
		return fmt.Sprintf(extensiveTemplate, regionSpecs, layout, in.Activity)
	}
	return fmt.Sprintf(conciseTemplate, term, regionSpecs, layout, in.Activity)
}

const conciseTemplate = `This study presents a systematic analysis framework for precise UI replication, incorporating component specifications and visual hierarchy assessment. The framework examines:

[%s Analysis]
%s

[Layout Analysis]
%s

[Interactive Elements]
%s

Technical Specifications for Implementation:

1. Layout Architecture
- Container dimensions and responsive breakpoints
- Component positioning matrix including:
    • Primary sections (header, content, footer)
    • Grid system specifications
    • Spatial relationships and padding metrics

2. Visual Parameters
- Color schema (primary, secondary, accent)
- Typography specifications
- Elevation system (shadows, borders)

3. Component Specifications
- Interactive controls
- Static elements
- State representations

4. Content Parameters
- Text constraints and overflow behavior
- Media dimensions and ratios
- Component hierarchy

This framework enables precise replication while maintaining structural integrity and interactive functionality across various viewport dimensions.
`

const extensiveTemplate = `You are an expert UI development agent tasked with providing exact technical specifications for recreating this interface. Analyze all details with high precision:

[Components Specifications by Location]
%s

[Layout Structure]
%s

[Interaction Patterns]
%s

Note: If a component has already been explained in detail above, only its name and location will be listed below to provide geographical context.

Provide a complete technical specification for exact replication in text format:

1. Layout Structure
- Primary container dimensions
- Component positioning map:
    • Header, main content, sidebars, footer
    • Layout elements:
        - Number and size of columns (e.g., 3 columns at 33%% each)
        - Number and height of rows
        - Grid/box count and arrangement
        - Circular elements diameter and placement
    • Spacing and gaps:
        - Between major sections
        - Between grid items
        - Inner padding
- Responsive behavior:
    • Breakpoint dimensions
    • Layout changes at each breakpoint
    • Element reflow rules

2. Visual Style
- Colors:
    • Primary, secondary, accent colors
    • Background colors
    • Text colors
    • Border colors
- Typography:
    • Font sizes
    • Text weights
    • Text alignment
- Depth and Emphasis:
    • Visible shadows
    • Border styles
    • Opacity levels

3. Visible Elements
- Controls:
    • Button appearances (if new, otherwise location only)
    • Form element styling (if new, otherwise location only)
    • Interactive element looks (if new, otherwise location only)
- Static Elements:
    • Images and icons (if new, otherwise location only)
    • Text content (if new, otherwise location only)
    • Decorative elements (if new, otherwise location only)
- Visual States:
    • Active/selected states
    • Disabled appearances
    • Current page indicators

4. Content Presentation
- Text:
    • Visible length limits
    • Current overflow handling
    • Text wrapping behavior
- Media:
    • Image dimensions
    • Aspect ratios
    • Current placeholder states

5. Visual Hierarchy
- Element stacking
- Content grouping
- Visual emphasis
- Spatial relationships between previously described components
`
