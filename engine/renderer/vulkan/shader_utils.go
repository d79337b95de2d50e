package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// createShaderModule builds a VkShaderModule directly from already
// decompressed SPIR-V bytes and wraps it in the PipelineShaderStageCreateInfo
// that a graphics or compute pipeline create call needs for that
// stage. Unlike the runtime's file-backed shader loading, the pipeline
// cache always hands this function bytes it already has in memory
// (engine/pipeline.ShaderDesc's parallel Sources slice), so there is
// no resource-system round trip here.
func createShaderModule(context *VulkanContext, code []byte, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("createShaderModule: SPIR-V code size %d is not a non-zero multiple of 4", len(code))
	}

	out := &VulkanShaderStage{}
	out.CreateInfo = vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    bytesToUint32Slice(code),
	}

	if res := vk.CreateShaderModule(
		context.Device.LogicalDevice,
		&out.CreateInfo,
		context.Allocator,
		&out.Handle); res != vk.Success {
		return nil, fmt.Errorf("vkCreateShaderModule failed with %s", VulkanResultString(res, true))
	}

	out.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageFlagBits(stage),
		Module: out.Handle,
		PName:  VulkanSafeString("main"),
	}

	return out, nil
}

func destroyShaderModule(context *VulkanContext, stage *VulkanShaderStage) {
	if stage == nil || stage.Handle == nil {
		return
	}
	vk.DestroyShaderModule(context.Device.LogicalDevice, stage.Handle, context.Allocator)
	stage.Handle = nil
}

// bytesToUint32Slice reinterprets a SPIR-V byte blob (already
// length-checked as a multiple of 4) as the uint32 words the Vulkan
// API expects, matching the endianness SPIR-V is always stored in.
func bytesToUint32Slice(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = uint32(code[i*4]) | uint32(code[i*4+1])<<8 | uint32(code[i*4+2])<<16 | uint32(code[i*4+3])<<24
	}
	return words
}
